// Package app is the composition root of portwatch.
//
// It loads the configuration, builds the Portman client, the Prometheus
// registry and the session coordinator, and binds the three data sources to
// sync components:
//
//	voyages   collector   paged /api/voyages
//	arrivals  collector   paged /api/arrivals
//	vessels   reconciler  AIS locations snapshot
//
// Three entry points share that wiring. Run opens a session with all three
// sources and hands it to the dashboard. Drain opens a session with a single
// collector, waits for the drain to finish and writes the items as JSON.
// Watch opens a session with the vessel reconciler and prints one line per
// poll until its context ends.
//
// When a metrics address is configured the /metrics endpoint runs in the same
// errgroup as the command, so a listener failure stops the command and the
// end of the command stops the listener.
package app
