// Command careerhub runs the candidate matching and admission allocation
// service and its maintenance tasks.
//
//	careerhub serve               # REST API
//	careerhub migrate up|down|status
//	careerhub match-job <job-id>  # re-run matching for one job
//	careerhub seed <file.json>    # load students, courses and applications
//	careerhub set-status <application-id> <status> -i <institution>
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
