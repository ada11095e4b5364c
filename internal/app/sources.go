package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/herratomsiili/portwatch/internal/collector"
	"github.com/herratomsiili/portwatch/internal/portman"
	"github.com/herratomsiili/portwatch/internal/reconciler"
)

// Collections lists the names accepted by Drain.
var Collections = []string{portman.SourceVoyages, portman.SourceArrivals}

// pageFunc adapts a cursor-paged client call to a collector fetch.
func pageFunc[E any](fetch func(context.Context, string) ([]E, string, error)) collector.FetchFunc[E] {
	return func(ctx context.Context, cursor string) (collector.Page[E], error) {
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return collector.Page[E]{}, err
		}
		return collector.Page[E]{Items: items, Next: next}, nil
	}
}

func voyagesFetch(f portman.Fetcher) collector.FetchFunc[portman.PortCall] {
	return pageFunc(f.FetchVoyagesPage)
}

func arrivalsFetch(f portman.Fetcher) collector.FetchFunc[portman.Arrival] {
	return pageFunc(f.FetchArrivalsPage)
}

func vesselsSnapshot(f portman.Fetcher) reconciler.SnapshotFunc[portman.VesselLocation] {
	return f.FetchVesselLocations
}

func checkCollection(name string) error {
	if slices.Contains(Collections, name) {
		return nil
	}
	return fmt.Errorf("unknown collection %q (want %s)", name, strings.Join(Collections, " or "))
}
