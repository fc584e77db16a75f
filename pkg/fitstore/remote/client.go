// Package remote implements [fitstore.Adapter] against the try-on HTTP API.
//
//	GET  /api/tryon/fits?poseId=front_v1&itemIds=a,b  -> {"fits": [record...]}
//	POST /api/tryon/fits  {itemId, poseId, transform, mesh?} -> record
//
// Fetches are retried on transient failures. Saves are never retried: a
// failed save is reported to the caller, which decides what to do.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/httputil"
)

// UserHeader carries the caller identity to the API.
const UserHeader = "X-User-ID"

const fitsPath = "/api/tryon/fits"

// Client talks to a try-on API server.
type Client struct {
	base    string
	user    string
	http    *http.Client
	retries int
	backoff time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithRetry sets the fetch retry attempts and initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(cl *Client) { cl.retries, cl.backoff = attempts, backoff }
}

// New creates a client for the API at baseURL acting as user.
func New(baseURL, user string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		user:    user,
		http:    &http.Client{Timeout: 15 * time.Second},
		retries: 3,
		backoff: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchResponse is the body of GET /api/tryon/fits.
type FetchResponse struct {
	Fits []fit.Record `json:"fits"`
}

// SaveRequest is the body of POST /api/tryon/fits.
type SaveRequest struct {
	ItemID    string          `json:"itemId"`
	PoseID    string          `json:"poseId"`
	Transform *fit.Transform  `json:"transform"`
	Mesh      []fit.MeshPoint `json:"mesh,omitempty"`
}

func (c *Client) FetchFits(ctx context.Context, poseID string, itemIDs []string) (map[string]fit.Transform, error) {
	out := make(map[string]fit.Transform)
	if len(itemIDs) == 0 {
		return out, nil
	}
	q := url.Values{}
	q.Set("poseId", poseID)
	q.Set("itemIds", strings.Join(itemIDs, ","))
	u := c.base + fitsPath + "?" + q.Encode()

	var body []byte
	err := httputil.Retry(ctx, c.retries, c.backoff, func() error {
		req, err := c.newRequest(http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		body, err = httputil.Do(ctx, c.http, req)
		return err
	})
	if err != nil {
		return nil, classify(err, "fetch fits")
	}

	var resp FetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode fits")
	}
	for _, r := range resp.Fits {
		out[r.ItemID] = r.Fit()
	}
	return out, nil
}

func (c *Client) SaveFit(ctx context.Context, itemID, poseID string, t fit.Transform) (fit.Record, error) {
	q := t.Quantize(fit.DefaultPrecision)
	payload, err := json.Marshal(SaveRequest{ItemID: itemID, PoseID: poseID, Transform: &q, Mesh: t.Mesh})
	if err != nil {
		return fit.Record{}, err
	}
	req, err := c.newRequest(http.MethodPost, c.base+fitsPath, payload)
	if err != nil {
		return fit.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := httputil.Do(ctx, c.http, req)
	if err != nil {
		return fit.Record{}, classify(err, "save fit "+itemID)
	}
	var rec fit.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return fit.Record{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode saved fit")
	}
	return rec, nil
}

func (c *Client) newRequest(method, u string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}
	return req, nil
}

func classify(err error, op string) error {
	if errors.GetCode(err) != "" {
		return err
	}
	var se *httputil.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Wrap(errors.ErrCodeUnauthorized, err, "%s", op)
		case http.StatusBadRequest:
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", op)
		case http.StatusNotFound:
			return errors.Wrap(errors.ErrCodeNotFound, err, "%s", op)
		}
		return errors.Wrap(errors.ErrCodeStore, err, "%s", op)
	}
	var te interface{ Timeout() bool }
	if err == context.DeadlineExceeded || (errors.As(err, &te) && te.Timeout()) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s", op)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "%s", op)
}

var _ fitstore.Adapter = (*Client)(nil)
