package cmd

import (
	"time"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/devserver"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// sampleLog is a canned log excerpt used by seed and the dev backend.
type sampleLog struct {
	name string
	text string
}

var sampleLogs = []sampleLog{
	{
		name: "checkout-5xx",
		text: `2024-05-01T10:00:01Z ERROR service=checkout GET /api/cart 503 Service Unavailable
2024-05-01T10:00:02Z ERROR service=checkout POST /api/pay 502 Bad Gateway
2024-05-01T10:00:03Z ERROR service=checkout GET /api/cart 500 Internal Server Error
2024-05-01T10:00:04Z WARN service=checkout retrying upstream payments-gateway`,
	},
	{
		name: "inventory-oom",
		text: `2024-05-01T11:12:40Z INFO [inventory] batch import started size=250000
2024-05-01T11:13:02Z ERROR [inventory] java.lang.OutOfMemoryError: Java heap space
2024-05-01T11:13:02Z ERROR [inventory] container OOMKilled, restarting`,
	},
	{
		name: "orders-timeouts",
		text: `ts,level,service,message
2024-05-01T12:00:00Z,ERROR,orders,dial tcp 10.0.3.7:5432: connection refused
2024-05-01T12:00:05Z,ERROR,orders,context deadline exceeded waiting for postgres
2024-05-01T12:00:10Z,ERROR,orders,request timed out after 30s`,
	},
	{
		name: "auth-failures",
		text: `2024-05-01T13:30:00Z WARN app=auth-api POST /login 401 Unauthorized user=alice
2024-05-01T13:30:01Z WARN app=auth-api POST /login 401 Unauthorized user=alice
2024-05-01T13:30:02Z WARN app=auth-api POST /login 403 Forbidden user=admin`,
	},
}

// sampleIncidents runs every sample through the local analyzer.
func sampleIncidents(now time.Time) []incident.Incident {
	var out []incident.Incident
	for _, s := range sampleLogs {
		out = append(devserver.Analyze(s.text, now), out...)
	}
	return out
}
