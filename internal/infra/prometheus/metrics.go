package prometheus

import (
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkrewards"

var (
	// LinksStarted counts reward links handed to a provider.
	LinksStarted = promauto.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "links_started_total",
		Help:      "Reward links created and routed to a provider.",
	}, []string{"provider"})

	// LinksRedeemed counts links completed by their owner.
	LinksRedeemed = promauto.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "links_redeemed_total",
		Help:      "Reward links completed and credited.",
	}, []string{"provider"})

	// LinksRejected counts start and earn attempts refused by policy or failure.
	LinksRejected = promauto.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "links_rejected_total",
		Help:      "Start and earn attempts rejected, by reason.",
	}, []string{"stage", "reason"})

	CreditsAwarded = promauto.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "credits_awarded_total",
		Help:      "Credits granted through redeemed links.",
	}, []string{"provider"})

	PurgedLinks = promauto.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "purged_links_total",
		Help:      "Links hard-deleted by the purge job.",
	}, []string{"kind"})
)
