// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"reflect"
)

// Change is one differing leaf field between two configs.
type Change struct {
	Field string
	Old   string
	New   string
}

// Diff lists the leaf fields that differ between a and b, using their YAML
// names joined by dots.
func Diff(a, b AppConfig) []Change {
	var out []Change
	diffValue("", reflect.ValueOf(a), reflect.ValueOf(b), &out)
	return out
}

func diffValue(prefix string, a, b reflect.Value, out *[]Change) {
	if a.Kind() == reflect.Struct {
		t := a.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			name := f.Tag.Get("yaml")
			if name == "-" || !f.IsExported() {
				continue
			}
			if name == "" {
				name = f.Name
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			diffValue(name, a.Field(i), b.Field(i), out)
		}
		return
	}
	if !reflect.DeepEqual(a.Interface(), b.Interface()) {
		*out = append(*out, Change{
			Field: prefix,
			Old:   fmt.Sprint(a.Interface()),
			New:   fmt.Sprint(b.Interface()),
		})
	}
}
