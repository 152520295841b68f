package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WhileEndless/go-hur/pkg/headers"
	"github.com/WhileEndless/go-hur/pkg/request"
)

// headerList collects repeated -h key:value flags.
type headerList []string

func (h *headerList) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerList) Set(s string) error {
	if _, _, err := headers.Parse(s); err != nil {
		return err
	}
	*h = append(*h, s)
	return nil
}

// parseHeaders builds the caller headers: -h pairs first, then the
// --headers-json object appended on top.
func parseHeaders(pairs []string, headersJSON string) (*headers.Headers, error) {
	hs := headers.New()
	for _, p := range pairs {
		k, v, err := headers.Parse(p)
		if err != nil {
			return nil, err
		}
		hs.Add(k, v)
	}

	if headersJSON == "" {
		return hs, nil
	}
	extra, err := jsonHeaders(headersJSON)
	if err != nil {
		return nil, err
	}
	hs.Append(extra)
	return hs, nil
}

// jsonHeaders reads a JSON object of headers. Arguments ending in .json
// name a file, anything else is the object itself.
func jsonHeaders(arg string) (*headers.Headers, error) {
	data := []byte(arg)
	if isJSONFile(arg) {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("reading headers file: %w", err)
		}
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing headers json: %w", err)
	}
	return headers.FromMap(m), nil
}

// parseBody returns the request body from whichever body flag is set.
func parseBody(body, bodyJSON, bodyFile string) (*request.Body, error) {
	switch {
	case body != "":
		return &request.Body{Content: body}, nil
	case bodyJSON != "":
		if !json.Valid([]byte(bodyJSON)) {
			return nil, fmt.Errorf("body is not valid JSON")
		}
		return &request.Body{Content: bodyJSON, ContentType: request.ContentTypeJSON}, nil
	case bodyFile != "":
		content, err := os.ReadFile(bodyFile)
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
		b := &request.Body{Content: string(content)}
		if isJSONFile(bodyFile) {
			b.ContentType = request.ContentTypeJSON
		}
		return b, nil
	}
	return nil, nil
}

func isJSONFile(path string) bool {
	return filepath.Ext(path) == ".json"
}
