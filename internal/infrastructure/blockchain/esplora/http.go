package esplora

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPError is returned for responses with a non 2xx status code.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("esplora: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("esplora: %d %s", e.Status, e.Body)
}

type response struct {
	status int
	body   string
}

// newHTTPRequest performs the request through the circuit breaker. Only
// transport failures and server side errors count as failures of the
// indexer, a rejected request is still a successful network call.
func (e *esplora) newHTTPRequest(
	ctx context.Context, method, path, body string, headers map[string]string,
) (string, error) {
	res, err := e.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(
			ctx, method, e.apiURL+path, strings.NewReader(body),
		)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		r := &response{resp.StatusCode, strings.TrimSpace(string(data))}
		if r.status >= http.StatusInternalServerError {
			return nil, &HTTPError{r.status, r.body}
		}
		return r, nil
	})
	if e.onCallResult != nil {
		e.onCallResult(err)
	}
	if err != nil {
		return "", err
	}

	r := res.(*response)
	if r.status < 200 || r.status > 299 {
		return "", &HTTPError{r.status, r.body}
	}
	return r.body, nil
}

func (e *esplora) get(ctx context.Context, path string) (string, error) {
	return e.newHTTPRequest(ctx, http.MethodGet, path, "", nil)
}
