package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	wget "github.com/frankli0324/go-wget"
	"github.com/frankli0324/go-wget/internal/logger"
	"github.com/frankli0324/go-wget/internal/query"
)

// exitError carries the transport error code out as the process exit status.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

type options struct {
	headers   []string
	query     []string
	data      string
	fields    []string
	json      bool
	xml       bool
	multipart bool
	bearer    string
	insecure  bool
	backend   string
	location  bool
	maxRedirs int
	timeout   time.Duration
	include   bool
	output    string
	verbose   bool
}

func newRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "wget",
		Short:         "Issue a single HTTP request and print the response",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	registerFlags(root.PersistentFlags(), o)
	for _, method := range []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE"} {
		root.AddCommand(newVerbCommand(method, o))
	}
	return root
}

func registerFlags(flags *pflag.FlagSet, o *options) {
	flags.StringArrayVarP(&o.headers, "header", "H", nil, `Request header "Name: Value" (repeatable)`)
	flags.StringArrayVarP(&o.query, "query", "q", nil, "Query parameter key=value (repeatable, repeated keys allowed)")
	flags.StringVarP(&o.data, "data", "d", "", "Raw request body, or @file to read it from a file")
	flags.StringArrayVarP(&o.fields, "field", "F", nil, "Body field key=value, key=@file for a multipart upload (repeatable)")
	flags.BoolVar(&o.json, "json", false, "Encode the body as JSON")
	flags.BoolVar(&o.xml, "xml", false, "Send the body as XML")
	flags.BoolVar(&o.multipart, "multipart", false, "Encode the body as multipart/form-data")
	flags.StringVar(&o.bearer, "bearer", "", "Bearer token for the Authorization header")
	flags.BoolVarP(&o.insecure, "insecure", "k", false, "Skip TLS certificate and host name verification")
	flags.StringVar(&o.backend, "backend", "", "Transport backend: wire or resty")
	flags.BoolVarP(&o.location, "location", "L", false, "Follow redirects")
	flags.IntVar(&o.maxRedirs, "max-redirs", 10, "Maximum redirects to follow with --location")
	flags.DurationVar(&o.timeout, "timeout", 0, "Overall request timeout (e.g. 10s)")
	flags.BoolVarP(&o.include, "include", "i", false, "Print the response headers before the body")
	flags.StringVarP(&o.output, "output", "o", "", "Write the body to this file instead of stdout")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Log debug output to stderr")
}

func newVerbCommand(method string, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, method, args[0], o)
		},
	}
}

func (o *options) transportOptions() []wget.Option {
	var opts []wget.Option
	if o.insecure {
		opts = append(opts, wget.WithInsecureSkipVerify())
	}
	if o.backend != "" {
		opts = append(opts, wget.WithBackend(o.backend))
	}
	if o.location {
		opts = append(opts, wget.WithFollowRedirects(o.maxRedirs))
	}
	if o.timeout > 0 {
		opts = append(opts, wget.WithTimeout(o.timeout))
	}
	return opts
}

func run(cmd *cobra.Command, method, target string, o *options) error {
	if o.verbose {
		logger.Init("debug")
		defer logger.Sync()
	}
	b, err := wget.HTTP(o.transportOptions()...)
	if err != nil {
		return err
	}
	defer b.Close()

	b.SetHeaderLines(o.headers...)
	if o.bearer != "" {
		b.SetBearerAuthorization(o.bearer, nil)
	}
	switch {
	case o.json:
		b.AsJSON()
	case o.xml:
		b.AsXML()
	case o.multipart:
		b.AsMultipart()
	}

	body, err := o.body()
	if err != nil {
		return err
	}
	if len(o.query) > 0 {
		rendered, err := query.Encode(pairs(o.query))
		if err != nil {
			return err
		}
		target = query.Append(target, rendered)
	}

	resp, err := b.Send(cmd.Context(), method, target, body)
	if err != nil {
		return err
	}
	if errs := resp.Errors(); len(errs) > 0 {
		code, _ := strconv.Atoi(errs[len(errs)-1])
		if code == 0 {
			code = 1
		}
		return &exitError{code: code, msg: strings.Join(errs[1:len(errs)-1], ": ")}
	}

	out := cmd.OutOrStdout()
	if o.include {
		io.WriteString(out, strings.Join(resp.ResponseHeaders(), "\n"))
	}
	if o.output != "" {
		if !resp.Save(o.output) {
			errs := resp.Errors()
			return fmt.Errorf("%s", errs[len(errs)-1])
		}
		return nil
	}
	s, _ := resp.Body()
	_, err = io.WriteString(out, s)
	return err
}

// body returns what to send: the raw --data payload, or the --field pairs
// for the builder to encode per its mode.
func (o *options) body() (interface{}, error) {
	if o.data != "" {
		if path, ok := strings.CutPrefix(o.data, "@"); ok {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
		return o.data, nil
	}
	if len(o.fields) == 0 {
		return nil, nil
	}
	fields := map[string]interface{}{}
	for _, kv := range o.fields {
		k, v, _ := strings.Cut(kv, "=")
		if path, ok := strings.CutPrefix(v, "@"); ok && o.multipart {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			fields[k] = wget.File{Name: filepath.Base(path), Content: content}
			continue
		}
		add(fields, k, v)
	}
	return fields, nil
}

// add stores v under k, collecting repeated keys into a []string.
func add(fields map[string]interface{}, k, v string) {
	switch prev := fields[k].(type) {
	case nil:
		fields[k] = v
	case string:
		fields[k] = []string{prev, v}
	case []string:
		fields[k] = append(prev, v)
	default:
		// a file part already holds the name
		fields[k] = v
	}
}

func pairs(kvs []string) url.Values {
	v := url.Values{}
	for _, kv := range kvs {
		k, val, _ := strings.Cut(kv, "=")
		v.Add(k, val)
	}
	return v
}
