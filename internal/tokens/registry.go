// Package tokens resolves token metadata (symbol, name, decimals) for
// display and amount parsing. The registry is injectable and session-scoped
// so tests run with isolated state.
package tokens

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/mgvlab/kandel/pkg/cache"
	"github.com/mgvlab/kandel/pkg/logger"
)

// Info is the metadata of one token.
type Info struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
}

// MetadataReader reads token metadata from the chain.
type MetadataReader interface {
	TokenMetadata(ctx context.Context, token common.Address) (symbol, name string, decimals uint8, err error)
}

// Registry caches token metadata resolved from the chain, with an optional
// HTTP token-list fallback for tokens whose on-chain strings are missing.
type Registry struct {
	reader MetadataReader
	cache  *cache.InMemoryCache[common.Address, Info]

	listURL string
	http    *resty.Client
}

// Option configures a Registry.
type Option func(*Registry)

// WithTokenList enables the HTTP token-list fallback.
func WithTokenList(url string) Option {
	return func(r *Registry) {
		r.listURL = url
		r.http = resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond)
	}
}

// NewRegistry creates a registry over the given chain reader.
func NewRegistry(reader MetadataReader, opts ...Option) *Registry {
	r := &Registry{
		reader: reader,
		// Token metadata is immutable in practice; a long TTL just
		// bounds memory for long sessions.
		cache: cache.NewInMemoryCache[common.Address, Info](12 * time.Hour),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns metadata for token, from cache when possible.
func (r *Registry) Resolve(ctx context.Context, token common.Address) (Info, error) {
	if info, ok := r.cache.Get(token); ok {
		return info, nil
	}

	symbol, name, decimals, err := r.reader.TokenMetadata(ctx, token)
	if err != nil && r.listURL != "" {
		logger.WithField("token", token.Hex()).Debugf("on-chain metadata failed (%v), trying token list", err)
		if info, listErr := r.fromTokenList(ctx, token); listErr == nil {
			r.cache.Set(token, info, 0)
			return info, nil
		}
	}
	if err != nil {
		return Info{}, errors.Wrapf(err, "resolve token %s", token.Hex())
	}

	info := Info{Address: token, Symbol: symbol, Name: name, Decimals: decimals}
	r.cache.Set(token, info, 0)
	return info, nil
}

type tokenListEntry struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

type tokenList struct {
	Tokens []tokenListEntry `json:"tokens"`
}

func (r *Registry) fromTokenList(ctx context.Context, token common.Address) (Info, error) {
	var list tokenList
	resp, err := r.http.R().SetContext(ctx).SetResult(&list).Get(r.listURL)
	if err != nil {
		return Info{}, errors.Wrap(err, "fetch token list")
	}
	if resp.IsError() {
		return Info{}, errors.Errorf("token list returned %s", resp.Status())
	}
	want := strings.ToLower(token.Hex())
	for _, entry := range list.Tokens {
		if strings.ToLower(entry.Address) == want {
			return Info{
				Address:  token,
				Symbol:   entry.Symbol,
				Name:     entry.Name,
				Decimals: entry.Decimals,
			}, nil
		}
	}
	return Info{}, errors.Errorf("token %s not in list", token.Hex())
}
