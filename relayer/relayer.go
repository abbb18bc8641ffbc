package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	logger "github.com/sirupsen/logrus"
)

const (
	RelayPath      = "/relays"
	requestTimeout = 10 * time.Second
	retryDelay     = 500 * time.Millisecond
)

var ErrRelayerNotConfigured = errors.New("relayer url is not configured")

type RelayRequest struct {
	ChainID uint64 `json:"chainId"`
	Target  string `json:"target"`
	Data    string `json:"data"`
}

type relayResponse struct {
	TaskID string `json:"taskId"`
}

// Relayer submits transactions through an external relayer service.
type Relayer struct {
	url     string
	apiKey  string
	retries uint
	client  *http.Client
	log     *logger.Entry
}

func NewRelayer(cfg config.RelayerConfig, log *logger.Entry) *Relayer {
	retries := cfg.Retries
	if retries == 0 {
		retries = 1
	}
	return &Relayer{
		url:     strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		retries: retries,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// Send asks the relayer to call target with data on chainID and returns the
// relayer's task id.
func (r *Relayer) Send(ctx context.Context, chainID uint64, target string, data []byte) (string, error) {
	if r.url == "" {
		return "", ErrRelayerNotConfigured
	}

	body, err := json.Marshal(&RelayRequest{
		ChainID: chainID,
		Target:  target,
		Data:    hexutil.Encode(data),
	})
	if err != nil {
		return "", err
	}

	var taskID string
	err = retry.Do(func() error {
		var err error
		taskID, err = r.post(ctx, body)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(r.retries),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.log.WithFields(logger.Fields{
				"attempt": n + 1,
				"chainId": chainID,
			}).WithError(err).Warn("relay failed, retrying")
		}),
	)
	if err != nil {
		return "", err
	}

	r.log.WithFields(logger.Fields{
		"chainId": chainID,
		"target":  target,
		"taskId":  taskID,
	}).Info("Relayed transaction")
	return taskID, nil
}

func (r *Relayer) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+RelayPath, bytes.NewReader(body))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", retry.Unrecoverable(fmt.Errorf("relayer rejected request: %d %s", resp.StatusCode, respBody))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("relayer error: %d %s", resp.StatusCode, respBody)
	}

	var out relayResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", retry.Unrecoverable(err)
	}
	if out.TaskID == "" {
		return "", retry.Unrecoverable(errors.New("relayer returned no task id"))
	}
	return out.TaskID, nil
}
