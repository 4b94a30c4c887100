// Package wget is a fluent HTTP request builder over a pluggable HTTP/1.1
// transport.
//
//	b, _ := wget.HTTP()
//	defer b.Close()
//	resp, err := b.AsJSON().Post(ctx, "https://example.com/api", map[string]string{"k": "v"})
//
// The error of a verb method only reports a request that could not be
// serialized; transport failures end up in Response.Errors.
package wget

import (
	"sync"

	"github.com/frankli0324/go-wget/internal/builder"
	"github.com/frankli0324/go-wget/internal/codec"
	"github.com/frankli0324/go-wget/internal/config"
	"github.com/frankli0324/go-wget/internal/logger"
	"github.com/frankli0324/go-wget/internal/model"
	"github.com/frankli0324/go-wget/internal/response"
	"github.com/frankli0324/go-wget/internal/transport"
)

type Builder = builder.Builder
type Response = response.Response
type Request = model.Request
type Result = model.Result

type Handler = builder.Handler
type Middleware = builder.Middleware

type Mode = codec.Mode
type File = codec.File

const (
	Form      = codec.Form
	JSON      = codec.JSON
	XML       = codec.XML
	Multipart = codec.Multipart
)

var initLogger sync.Once

// HTTP returns a builder with secure defaults, the WGET_* environment
// settings and then opts applied.
func HTTP(opts ...Option) (*Builder, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	return newBuilder(cfg, opts...)
}

// HTTPClient is the same as HTTP.
func HTTPClient(opts ...Option) (*Builder, error) {
	return HTTP(opts...)
}

func newBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg.LogLevel != "" {
		initLogger.Do(func() { logger.Init(cfg.LogLevel) })
	}
	return builder.New(append(configOptions(cfg), opts...)...)
}

// configOptions go first so that explicit options override the environment.
func configOptions(cfg *config.Config) []Option {
	var opts []Option
	if cfg.Insecure {
		opts = append(opts, transport.WithInsecureSkipVerify())
	}
	if cfg.Backend != "" {
		opts = append(opts, transport.WithBackend(cfg.Backend))
	}
	return opts
}
