package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/geo"
	"github.com/pkordes/taxi-analytics/backend/internal/metrics"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
)

const (
	maxVendorCodeLen  = 50
	maxZoneNameLen    = 255
	maxShapefileIDLen = 100

	sharedCallTimeout = 30 * time.Second

	zoneNamePrefix = "name:"
	zoneCellPrefix = "gh6:"
)

// ResolverConfig tunes the create-or-fetch loop and zone matching.
type ResolverConfig struct {
	// MaxRetries bounds how many times a lost create race is re-fetched.
	MaxRetries uint64
	// RetryDelay is the constant pause between attempts.
	RetryDelay time.Duration
	// MatchRadiusKm enables nearest-zone matching for coordinate-only input:
	// when the point's own cell has no zone yet, an existing zone in one of
	// the eight neighbouring cells whose centroid lies within this distance
	// is reused. Zero disables it.
	MatchRadiusKm float64
}

// DefaultResolverConfig is used by NewResolver when cfg is the zero value.
var DefaultResolverConfig = ResolverConfig{MaxRetries: 5, RetryDelay: 10 * time.Millisecond}

// References are the ids a raw trip resolves to. Nil means no reference.
type References struct {
	VendorID      *int32
	PickupZoneID  *int32
	DropoffZoneID *int32
}

// Resolver maps raw vendor codes, zone names and coordinates onto vendor and
// zone ids, creating the entity the first time a key is seen.
//
// At most one row per key is guaranteed by the unique constraints on
// vendors.vendor_code and zones.shapefile_id; the resolver turns a lost
// insert race into a re-fetch. Concurrent callers for the same key in this
// process share a single round trip through singleflight.
type Resolver struct {
	vendors repo.VendorRepo
	zones   repo.ZoneRepo
	cfg     ResolverConfig
	group   singleflight.Group
	metrics *metrics.Pipeline
	log     *slog.Logger
}

// NewResolver constructs a Resolver. m may be nil.
func NewResolver(vendors repo.VendorRepo, zones repo.ZoneRepo, cfg ResolverConfig, m *metrics.Pipeline, log *slog.Logger) *Resolver {
	if cfg.MaxRetries == 0 && cfg.RetryDelay == 0 {
		cfg.MaxRetries = DefaultResolverConfig.MaxRetries
		cfg.RetryDelay = DefaultResolverConfig.RetryDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{vendors: vendors, zones: zones, cfg: cfg, metrics: m, log: log}
}

// Resolve resolves every reference a raw trip carries. The first failure
// aborts; entities already created by earlier steps are kept, since they are
// shared reference data.
func (r *Resolver) Resolve(ctx context.Context, raw domain.RawTrip) (References, error) {
	var refs References
	var err error

	if refs.VendorID, err = r.ResolveVendor(ctx, raw.VendorCode); err != nil {
		return References{}, err
	}
	if refs.PickupZoneID, err = r.ResolveZone(ctx, raw.PickupZoneName, raw.PickupLat, raw.PickupLon); err != nil {
		return References{}, err
	}
	if refs.DropoffZoneID, err = r.ResolveZone(ctx, raw.DropoffZoneName, raw.DropoffLat, raw.DropoffLon); err != nil {
		return References{}, err
	}
	return refs, nil
}

// ResolveVendor returns the id of the vendor with the given code, creating it
// with empty name and notes if needed. A blank code yields nil.
func (r *Resolver) ResolveVendor(ctx context.Context, code string) (*int32, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	if len(code) > maxVendorCodeLen {
		return nil, &domain.ResolutionError{
			Reason: domain.ReasonMalformedVendorCode,
			Detail: fmt.Sprintf("vendor code longer than %d characters", maxVendorCodeLen),
		}
	}

	v, err := r.shared(ctx, "vendor:"+code, "vendor", func(ctx context.Context) (any, bool, error) {
		return createOrFetch(ctx, r.backoff(),
			func(ctx context.Context) (domain.Vendor, error) { return r.vendors.GetByCode(ctx, code) },
			func(ctx context.Context) (domain.Vendor, error) {
				return r.vendors.Create(ctx, domain.Vendor{VendorCode: code})
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("service.Resolver.ResolveVendor: %w", err)
	}
	id := v.(domain.Vendor).VendorID
	return &id, nil
}

// ResolveZone returns the id of the zone a name and/or coordinate pair maps to.
//
// A name takes precedence and keys the zone as "name:<slug>"; coordinates
// supplied alongside only seed the centroid of a newly created zone. Without
// a name, the point keys its geohash cell as "gh6:<hash>". With neither, the
// result is nil and no error.
func (r *Resolver) ResolveZone(ctx context.Context, name string, lat, lon *float64) (*int32, error) {
	p, err := geo.PointFrom(lat, lon)
	if err != nil {
		return nil, &domain.ResolutionError{Reason: domain.ReasonMalformedCoordinates, Detail: err.Error()}
	}

	var z domain.Zone
	name = strings.TrimSpace(name)
	switch {
	case name != "":
		slug := Slugify(name)
		if slug == "" || len(name) > maxZoneNameLen || len(zoneNamePrefix)+len(slug) > maxShapefileIDLen {
			return nil, &domain.ResolutionError{Reason: domain.ReasonMalformedZone, Detail: fmt.Sprintf("unusable zone name %q", name)}
		}
		z = domain.Zone{ZoneName: name, ShapefileID: zoneNamePrefix + slug}
		if p != nil {
			z.CentroidLat, z.CentroidLon = &p.Lat, &p.Lon
		}
	case p != nil:
		cell := p.Cell()
		if r.cfg.MatchRadiusKm > 0 {
			id, ok, err := r.nearestZone(ctx, *p, cell)
			if err != nil {
				return nil, fmt.Errorf("service.Resolver.ResolveZone: %w", err)
			}
			if ok {
				return &id, nil
			}
		}
		c := geo.CellCenter(cell)
		z = domain.Zone{ZoneName: cell, ShapefileID: zoneCellPrefix + cell, CentroidLat: &c.Lat, CentroidLon: &c.Lon}
	default:
		return nil, nil
	}

	v, err := r.shared(ctx, "zone:"+z.ShapefileID, "zone", func(ctx context.Context) (any, bool, error) {
		return createOrFetch(ctx, r.backoff(),
			func(ctx context.Context) (domain.Zone, error) { return r.zones.GetByShapefileID(ctx, z.ShapefileID) },
			func(ctx context.Context) (domain.Zone, error) { return r.zones.Create(ctx, z) },
		)
	})
	if err != nil {
		return nil, fmt.Errorf("service.Resolver.ResolveZone: %w", err)
	}
	id := v.(domain.Zone).ZoneID
	return &id, nil
}

// nearestZone looks for an existing zone for p's own cell, then for the
// closest neighbouring-cell zone within the match radius.
func (r *Resolver) nearestZone(ctx context.Context, p geo.Point, cell string) (int32, bool, error) {
	neighbors := geo.NeighborCells(cell)
	keys := make([]string, 0, len(neighbors)+1)
	keys = append(keys, zoneCellPrefix+cell)
	for _, n := range neighbors {
		keys = append(keys, zoneCellPrefix+n)
	}

	zones, err := r.zones.ListByShapefileIDs(ctx, keys)
	if err != nil {
		return 0, false, err
	}

	var (
		best     int32
		bestDist = math.Inf(1)
	)
	for _, z := range zones {
		if z.ShapefileID == keys[0] {
			return z.ZoneID, true, nil
		}
		if z.CentroidLat == nil || z.CentroidLon == nil {
			continue
		}
		d := geo.HaversineKm(p, geo.Point{Lat: *z.CentroidLat, Lon: *z.CentroidLon})
		if d <= r.cfg.MatchRadiusKm && d < bestDist {
			best, bestDist = z.ZoneID, d
		}
	}
	return best, !math.IsInf(bestDist, 1), nil
}

// shared runs fn once per key across concurrent callers and records a
// creation metric for the caller that actually inserted the row.
//
// The shared call runs detached from any one caller's cancellation, bounded
// by sharedCallTimeout, so a follower is never failed by the leader's
// context. Each caller still stops waiting when its own ctx ends.
func (r *Resolver) shared(ctx context.Context, key, kind string, fn func(context.Context) (any, bool, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := r.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()

		v, created, err := fn(sctx)
		if err != nil {
			return nil, err
		}
		if created {
			r.log.InfoContext(sctx, "entity created", "kind", kind, "key", key)
			if r.metrics != nil {
				r.metrics.Created(sctx, kind)
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) backoff() retry.Backoff {
	return retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewConstant(r.cfg.RetryDelay))
}

// createOrFetch is the insert-if-absent primitive behind all lazy entity
// creation. It fetches by key; on a miss it inserts; if the insert loses a
// race (domain.ErrConflict) it retries from the fetch. The boolean reports
// whether this call created the row.
func createOrFetch[T any](
	ctx context.Context,
	b retry.Backoff,
	get func(context.Context) (T, error),
	create func(context.Context) (T, error),
) (T, bool, error) {
	var (
		out     T
		created bool
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := get(ctx)
		if err == nil {
			out = v
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		v, err = create(ctx)
		switch {
		case err == nil:
			out, created = v, true
			return nil
		case errors.Is(err, domain.ErrConflict):
			return retry.RetryableError(err)
		default:
			return err
		}
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return out, created, nil
}

// Letters and digits in any script survive, with their combining marks, so
// "Café" and "Caf" stay distinct and "東京" is a usable name.
var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}]+`)

// Slugify lowercases s and collapses every run of characters that are not
// letters or digits into a single hyphen: "Upper East Side!" -> "upper-east-side".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
