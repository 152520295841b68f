package cli

import (
	"context"
	"flag"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/WhileEndless/go-hur/pkg/logger"
	"github.com/WhileEndless/go-hur/pkg/proxy"
	"github.com/WhileEndless/go-hur/pkg/request"
	"github.com/WhileEndless/go-hur/pkg/requester"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

// reqFlags are the inputs of the req command.
type reqFlags struct {
	URL          string     `flag:"url" validate:"required,url"`
	Method       string     `flag:"method" validate:"oneof=GET POST PUT DELETE PATCH HEAD OPTIONS TRACE CONNECT"`
	Headers      headerList `flag:"header" validate:"-"`
	HeadersJSON  string     `flag:"headers-json"`
	Body         string     `flag:"body" validate:"excluded_with=BodyJSON BodyFile"`
	BodyJSON     string     `flag:"body-json" validate:"omitempty,json,excluded_with=BodyFile"`
	BodyFile     string     `flag:"body-file" validate:"omitempty,file"`
	Verbose      bool       `flag:"verbose"`
	QueryHeader  string     `flag:"query-header"`
	NoProxy      bool       `flag:"no-proxy"`
	Timeout      int        `flag:"timeout" validate:"gte=1"`
	RedirectMode string     `flag:"redirect-mode"`
}

func (f *reqFlags) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("req", flag.ContinueOnError)
	fs.StringVar(&f.Method, "m", "GET", "HTTP method")
	fs.StringVar(&f.Method, "method", "GET", "HTTP method")
	fs.Var(&f.Headers, "h", "Header as key:value (repeatable)")
	fs.Var(&f.Headers, "header", "Header as key:value (repeatable)")
	fs.StringVar(&f.HeadersJSON, "headers-json", "", "Headers as a JSON object or a path to a .json file")
	fs.StringVar(&f.Body, "b", "", "Request body")
	fs.StringVar(&f.Body, "body", "", "Request body")
	fs.StringVar(&f.BodyJSON, "body-json", "", "JSON request body")
	fs.StringVar(&f.BodyFile, "body-file", "", "Read the request body from a file")
	fs.BoolVar(&f.Verbose, "v", false, "Print request and response as JSON")
	fs.BoolVar(&f.Verbose, "verbose", false, "Print request and response as JSON")
	fs.StringVar(&f.QueryHeader, "query-header", "", "Print only the values of this response header")
	fs.BoolVar(&f.NoProxy, "no-proxy", false, "Ignore proxy environment variables")
	fs.IntVar(&f.Timeout, "t", 30, "Read timeout in seconds")
	fs.IntVar(&f.Timeout, "timeout", 30, "Read timeout in seconds")
	fs.StringVar(&f.RedirectMode, "r", "", "Redirect mode: follow, nofollow or interactive")
	fs.StringVar(&f.RedirectMode, "redirect-mode", "", "Redirect mode: follow, nofollow or interactive")
	return fs
}

// parse reads args, allowing flags on either side of the URL.
func (f *reqFlags) parse(fs *flag.FlagSet, args []string) error {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		f.URL = positional[0]
	default:
		return fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}
	f.Method = strings.ToUpper(f.Method)
	return nil
}

// runRequest executes the req command.
func (a *app) runRequest(ctx context.Context, args []string) error {
	var f reqFlags
	fs := f.flagSet()
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "Usage: hur req URL [flags]")
		fs.PrintDefaults()
	}
	if err := f.parse(fs, args); err != nil {
		return usageError{err}
	}
	if err := Validate(f); err != nil {
		return usageError{err}
	}

	hs, err := parseHeaders(f.Headers, f.HeadersJSON)
	if err != nil {
		return usageError{err}
	}
	body, err := parseBody(f.Body, f.BodyJSON, f.BodyFile)
	if err != nil {
		return usageError{err}
	}

	cfgPath, err := ConfigPath()
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	mode, err := redirectMode(f.RedirectMode, cfg)
	if err != nil {
		return usageError{err}
	}

	u, err := urltarget.Parse(f.URL)
	if err != nil {
		return err
	}
	var px *proxy.Config
	if !f.NoProxy {
		px = proxy.FromLookup(a.getenv)
	}

	req, err := request.New(ctx, u, request.Options{
		Method:  f.Method,
		Headers: hs,
		Body:    body,
		Timeout: time.Duration(f.Timeout) * time.Second,
		Proxy:   px,
	})
	if err != nil {
		return err
	}

	rq := requester.New(mode,
		requester.WithLogger(logger.L()),
		requester.WithPrompt(a.stdin, a.stderr),
	)
	resp, err := rq.Do(ctx, req)
	if err != nil {
		return err
	}

	p := printer{stdout: a.stdout, stderr: a.stderr, useColor: a.useColor}
	return p.print(req, resp, f.Verbose, f.QueryHeader)
}

// runConfig executes the config command.
func (a *app) runConfig(args []string) error {
	if len(args) != 1 || args[0] != "create" {
		return usageError{fmt.Errorf("usage: hur config create")}
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := CreateDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created config at %s\n", path)
	return nil
}

// flagNames maps reqFlags field names to flag names for error messages.
func flagNames(fields string) string {
	t := reflect.TypeOf(reqFlags{})
	var names []string
	for _, field := range strings.Fields(fields) {
		sf, ok := t.FieldByName(field)
		if !ok {
			names = append(names, field)
			continue
		}
		names = append(names, "--"+sf.Tag.Get("flag"))
	}
	return strings.Join(names, " or ")
}
