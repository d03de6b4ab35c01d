// Package server is the ops surface of the publishing daemon: health and
// readiness probes plus the Prometheus scrape endpoint, served over a chi
// router.
//
// It carries no publish traffic. Readiness flips to 503 the moment shutdown
// begins so load balancers stop probing before the listener drains.
package server
