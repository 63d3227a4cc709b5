package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/touchstone-names/pkg/importer"
	"github.com/hazyhaar/touchstone-names/pkg/kit"
	"github.com/hazyhaar/touchstone-names/pkg/names"
)

// DefaultMaxBatch caps the names accepted by one add request.
const DefaultMaxBatch = 1000

// Service bundles the process-wide name index with the components the
// endpoints need. All transports share one Service.
type Service struct {
	Directory        *names.Directory[string]
	Normalizer       *names.Normalizer
	Comparator       *names.Comparator
	DefaultThreshold names.Threshold
	MaxBatch         int
	Logger           *slog.Logger
	// Sources reports ingest and availability history; nil when not tracked.
	Sources SourceLister
}

// SourceLister is satisfied by *importer.StatusDB.
type SourceLister interface {
	List() ([]importer.SourceStatus, error)
}

// Shared request/response types used by both HTTP and MCP transports.

type normalizeReq struct {
	Name *string
}

type normalizeResponse struct {
	Name       *string `json:"name"`
	Normalized string  `json:"normalized"`
}

type matchReq struct {
	Name1, Name2 *string
	Threshold    names.Threshold
}

type matchResponse struct {
	Name1     string          `json:"name1"`
	Name2     string          `json:"name2"`
	Threshold names.Threshold `json:"threshold"`
	Match     bool            `json:"match"`
	Keys1     names.Keys      `json:"keys1"`
	Keys2     names.Keys      `json:"keys2"`
}

type lookupReq struct {
	Name string
}

type addNamesReq struct {
	Names []string
	IDs   []string
}

// addNamesResponse splits a batch three ways. Added names were filed under
// at least one key. Skipped names were accepted but have no tokens to encode
// ("Dr.", "123"). Rejected names failed and are listed in Errors.
type addNamesResponse struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

type keyReq struct {
	Key string
}

type keyResponse struct {
	Key    string   `json:"key"`
	Strong []string `json:"strong"`
	Weak   []string `json:"weak"`
}

type matchesReq struct {
	Kind string
}

type matchesResponse struct {
	Kind    string              `json:"kind"`
	Matches map[string][]string `json:"matches"`
}

type sourcesResponse struct {
	Sources []importer.SourceStatus `json:"sources"`
}

type endpoints struct {
	normalize kit.Endpoint
	match     kit.Endpoint
	lookup    kit.Endpoint
	addNames  kit.Endpoint
	key       kit.Endpoint
	matches   kit.Endpoint
	sources   kit.Endpoint
}

// buildEndpoints wraps every endpoint with logging and, when m is non-nil, metrics.
func buildEndpoints(svc *Service, m *Metrics) endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		mws := []kit.Middleware{kit.Logging(svc.Logger, name)}
		if m != nil {
			mws = append(mws, m.Middleware(name))
		}
		return kit.Chain(mws[0], mws[1:]...)(ep)
	}
	return endpoints{
		normalize: wrap("normalize", normalizeEndpoint(svc)),
		match:     wrap("match", matchEndpoint(svc)),
		lookup:    wrap("lookup", lookupEndpoint(svc)),
		addNames:  wrap("add_names", addNamesEndpoint(svc)),
		key:       wrap("key", keyEndpoint(svc)),
		matches:   wrap("matches", matchesEndpoint(svc)),
		sources:   wrap("sources", sourcesEndpoint(svc)),
	}
}

func normalizeEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		return normalizeResponse{Name: req.Name, Normalized: svc.Normalizer.NormalizePtr(req.Name)}, nil
	}
}

func matchEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*matchReq)
		ok, err := svc.Comparator.MatchNames(req.Name1, req.Name2, req.Threshold)
		if err != nil {
			return nil, err
		}
		return matchResponse{
			Name1:     *req.Name1,
			Name2:     *req.Name2,
			Threshold: req.Threshold,
			Match:     ok,
			Keys1:     svc.Comparator.Encode(*req.Name1),
			Keys2:     svc.Comparator.Encode(*req.Name2),
		}, nil
	}
}

func lookupEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*lookupReq)
		return svc.Directory.Lookup(req.Name), nil
	}
}

func addNamesEndpoint(svc *Service) kit.Endpoint {
	maxBatch := svc.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return func(_ context.Context, request any) (any, error) {
		req := request.(*addNamesReq)
		if len(req.Names) == 0 {
			return nil, fmt.Errorf("%w: names array is empty", names.ErrInvalidArgument)
		}
		if len(req.Names) > maxBatch {
			return nil, fmt.Errorf("%w: too many names (max %d, got %d)", names.ErrInvalidArgument, maxBatch, len(req.Names))
		}

		filed, err := svc.Directory.AddNamesCount(req.Names, req.IDs)
		resp := addNamesResponse{Added: filed}
		if err != nil {
			var joined interface{ Unwrap() []error }
			if !errors.As(err, &joined) {
				return nil, err
			}
			for _, e := range joined.Unwrap() {
				resp.Errors = append(resp.Errors, e.Error())
			}
		}
		resp.Rejected = len(resp.Errors)
		resp.Skipped = len(req.Names) - resp.Rejected - filed
		return resp, nil
	}
}

func keyEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*keyReq)
		strong, weak := svc.Directory.Bucket(req.Key)
		if strong == nil {
			strong = []string{}
		}
		if weak == nil {
			weak = []string{}
		}
		return keyResponse{Key: req.Key, Strong: strong, Weak: weak}, nil
	}
}

func matchesEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*matchesReq)
		switch req.Kind {
		case "strong":
			return matchesResponse{Kind: req.Kind, Matches: svc.Directory.StrongMatches()}, nil
		case "weak":
			return matchesResponse{Kind: req.Kind, Matches: svc.Directory.WeakMatches()}, nil
		default:
			return nil, fmt.Errorf("%w: unknown match kind %q (want strong or weak)", names.ErrInvalidArgument, req.Kind)
		}
	}
}

func sourcesEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		resp := sourcesResponse{Sources: []importer.SourceStatus{}}
		if svc.Sources == nil {
			return resp, nil
		}
		list, err := svc.Sources.List()
		if err != nil {
			return nil, err
		}
		if list != nil {
			resp.Sources = list
		}
		return resp, nil
	}
}

// isClientError reports whether err was caused by the request.
func isClientError(err error) bool {
	return errors.Is(err, names.ErrInvalidArgument) ||
		errors.Is(err, names.ErrLengthMismatch) ||
		errors.Is(err, names.ErrTooManyTokens)
}
