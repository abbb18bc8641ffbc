package chaindata

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	logger "github.com/sirupsen/logrus"
)

//go:embed chaindata.json
var embedded []byte

const (
	fetchAttempts = 3
	fetchDelay    = 500 * time.Millisecond
	fetchTimeout  = 10 * time.Second
)

// ChainData describes one chain the agents may talk to.
type ChainData struct {
	Name          string `json:"name"`
	ChainID       uint64 `json:"chainId"`
	DomainID      string `json:"domainId"`
	Type          string `json:"type"`
	Confirmations uint64 `json:"confirmations"`
	ShortName     string `json:"shortName"`
	Network       string `json:"network"`
}

// GetChainData fetches the chain data list from url. When url is empty or
// the list cannot be fetched, the copy shipped with the binary is returned.
func GetChainData(ctx context.Context, url string) (map[string]ChainData, error) {
	if url != "" {
		var data []byte
		err := retry.Do(func() error {
			var err error
			data, err = fetch(ctx, url)
			return err
		}, retry.Context(ctx), retry.Attempts(fetchAttempts), retry.Delay(fetchDelay), retry.LastErrorOnly(true))
		if err == nil {
			list, err := parse(data)
			if err == nil {
				return ToMap(list), nil
			}
			logger.WithField("url", url).WithError(err).Warn("remote chain data is malformed, using embedded copy")
		} else {
			logger.WithField("url", url).WithError(err).Warn("failed to fetch chain data, using embedded copy")
		}
	}

	list, err := parse(embedded)
	if err != nil {
		return nil, err
	}
	return ToMap(list), nil
}

func ToMap(list []ChainData) map[string]ChainData {
	m := make(map[string]ChainData, len(list))
	for _, c := range list {
		m[c.DomainID] = c
	}
	return m
}

// Filter returns the entries of domains. A domain missing from all gets a bare
// entry named after it, so local chains can be configured.
func Filter(all map[string]ChainData, domains []string) map[string]ChainData {
	m := make(map[string]ChainData, len(domains))
	for _, d := range domains {
		c, ok := all[d]
		if !ok {
			c = ChainData{Name: d, DomainID: d}
		}
		m[d] = c
	}
	return m
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching chain data: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parse(data []byte) ([]ChainData, error) {
	var list []ChainData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for _, c := range list {
		if c.DomainID == "" {
			return nil, fmt.Errorf("chain data entry without domain id: %s", c.Name)
		}
	}
	return list, nil
}
