package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reminderJobRunsTotal, reminderItemsTotal) }

var reminderJobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_job_runs_total",
		Help: "Total number of reminder job runs, labeled by job.",
	},
	[]string{"job"}, // 'birthday', 'deadline', 'unpaid'
)

var reminderItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_items_total",
		Help: "Total number of reminder notifications produced, labeled by job.",
	},
	[]string{"job"},
)

func IncReminderRun(job string, items int) {
	reminderJobRunsTotal.WithLabelValues(job).Inc()
	if items > 0 {
		reminderItemsTotal.WithLabelValues(job).Add(float64(items))
	}
}
