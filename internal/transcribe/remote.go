package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cabinetlabs/seanced/internal/errs"
)

// Remote calls an external speech service over HTTP multipart. Calls are
// retried with bounded exponential backoff on timeout/quota errors; the
// caller decides what to do once the budget is spent.
type Remote struct {
	endpoint string
	apiKey   string
	client   *http.Client
	maxWait  time.Duration
}

func NewRemote(endpoint, apiKey string, timeoutSeconds int) *Remote {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &Remote{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		maxWait:  time.Duration(timeoutSeconds) * time.Second,
	}
}

func (r *Remote) Name() string { return "remote" }

type remoteResp struct {
	Text string `json:"text"`
}

func (r *Remote) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "segment.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = r.maxWait

	var text string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body.Bytes()))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := r.client.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("%w: %v", errs.ErrUpstreamTimeout, err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: http %d: %s", errs.ErrUpstreamUnavailable, resp.StatusCode, raw)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("asr http %d: %s", resp.StatusCode, raw))
		}

		var out remoteResp
		if err := json.Unmarshal(raw, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("asr decode error: %v body=%s", err, raw))
		}
		text = out.Text
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return text, nil
}
