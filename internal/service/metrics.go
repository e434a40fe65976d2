package service

import "github.com/prometheus/client_golang/prometheus"

var (
	usersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "users_created_total",
		Help: "Count of successfully created users",
	})
	createConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "user_create_conflicts_total",
		Help: "Count of user creations rejected as duplicates",
	}, []string{"field"})
)

func init() { prometheus.MustRegister(usersCreated, createConflicts) }
