// Reader is a testing facility to read the output of a http reporter.

package reporter

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type HttpReader struct {
	baseURL string
}

func NewHttpReader(baseURL string) *HttpReader {
	return &HttpReader{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (hr *HttpReader) GetPing() (string, error) {
	_, body, err := hr.do(http.MethodGet, ROUTE_PING, nil)
	return string(body), err
}

func (hr *HttpReader) GetChains() ([]ChainStatus, error) {
	_, body, err := hr.do(http.MethodGet, ROUTE_CHAINS, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Chains []ChainStatus `json:"chains"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Chains, nil
}

// PostBid returns the status code and the raw body.
func (hr *HttpReader) PostBid(transferID string, req *BidRequest) (int, string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, "", err
	}
	status, body, err := hr.do(http.MethodPost, auctionPath(transferID), data)
	return status, string(body), err
}

func (hr *HttpReader) GetAuction(transferID string) (int, string, error) {
	status, body, err := hr.do(http.MethodGet, auctionPath(transferID), nil)
	return status, string(body), err
}

func auctionPath(transferID string) string {
	return strings.Replace(ROUTE_AUCTIONS, ":transferId", transferID, 1)
}

func (hr *HttpReader) do(method, path string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequest(method, hr.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	// Read the response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
