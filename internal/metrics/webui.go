// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_webui_requests_total",
		Help: "Web UI asset requests by result",
	}, []string{"result"}) // result=served|not_modified|fallback|not_found|forbidden|error

	assetCopies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_webui_copied_files_total",
		Help: "Files written into the bundle output by the copy step",
	}, []string{"outcome"})
)

// IncAssetRequest counts one web UI request.
func IncAssetRequest(result string) {
	assetRequests.WithLabelValues(result).Inc()
}

// IncAssetCopy counts one file handled by the copy step.
func IncAssetCopy(err error) {
	assetCopies.WithLabelValues(outcome(err)).Inc()
}
