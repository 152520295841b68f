package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/WhileEndless/go-hur/pkg/request"
	"github.com/WhileEndless/go-hur/pkg/response"
)

// exchange is the verbose rendering of one call.
type exchange struct {
	Request  *request.Request   `json:"request"`
	Response *response.Response `json:"response"`
}

type printer struct {
	stdout   io.Writer
	stderr   io.Writer
	useColor bool
}

// print renders resp. Verbose output is pretty JSON of the request and
// the response. With a query header only that header's values are
// printed, one per line. Otherwise the body alone goes to stdout.
func (p printer) print(req *request.Request, resp *response.Response, verbose bool, queryHeader string) error {
	if verbose {
		out, err := json.MarshalIndent(exchange{Request: req, Response: resp}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.stdout, string(out))
		return err
	}

	p.status(resp)

	if queryHeader != "" {
		for _, v := range resp.Headers.Get(queryHeader) {
			fmt.Fprintln(p.stdout, v)
		}
		return nil
	}

	if resp.Body != nil {
		fmt.Fprintln(p.stdout, *resp.Body)
	}
	return nil
}

// status writes the status line to stderr, colored by class.
func (p printer) status(resp *response.Response) {
	c := color.New(statusColor(resp.StatusCode), color.Bold)
	if p.useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintln(p.stderr, resp.StatusLine())
}

func statusColor(code int) color.Attribute {
	switch {
	case code >= 500:
		return color.FgRed
	case code >= 400:
		return color.FgYellow
	case code >= 300:
		return color.FgCyan
	case code >= 200:
		return color.FgGreen
	default:
		return color.FgWhite
	}
}
