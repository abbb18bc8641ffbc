// This is the sequencer's http surface.
// Routers post bids on it, operators read auction and chain status.

package reporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/cache"
	"github.com/TEENet-io/xbridge-agents/common"
	"github.com/TEENet-io/xbridge-agents/contracts"
)

const (
	ROUTE_PING     = "/ping"
	ROUTE_CHAINS   = "/chains"
	ROUTE_AUCTIONS = "/auctions/:transferId"

	shutdownTimeout = 5 * time.Second
)

// ChainReader is what /chains needs from the chain reader.
type ChainReader interface {
	GetBlockNumber(ctx context.Context, domain string) (uint64, error)
}

// BidRequest is the body of a bid submission.
type BidRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Router      string `json:"router"`
	Fee         string `json:"fee"`
	Signature   string `json:"signature"`
}

type ChainStatus struct {
	Domain      string `json:"domain"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	auctions cache.AuctionsCache
	chains   ChainReader
	domains  []string
	clock    agreement.Clock

	log *logger.Entry
}

func NewHttpReporter(
	serverIP string,
	serverPort string,
	auctions cache.AuctionsCache,
	chains ChainReader,
	domains []string,
	clock agreement.Clock,
	log *logger.Entry,
) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		auctions:   auctions,
		chains:     chains,
		domains:    domains,
		clock:      clock,
		log:        log,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET(ROUTE_PING, Ping)
	router.GET(ROUTE_CHAINS, h.Chains)
	router.POST(ROUTE_AUCTIONS, h.PostBid)
	router.GET(ROUTE_AUCTIONS, h.GetAuction)

	return router
}

// Listen binds the configured address.
func (h *HttpReporter) Listen() (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(h.serverIP, h.serverPort))
}

// Serve serves on ln until ctx is done, then shuts the server down.
func (h *HttpReporter) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h.SetupRouter()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Run is Listen then Serve.
func (h *HttpReporter) Run(ctx context.Context) error {
	ln, err := h.Listen()
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

func (h *HttpReporter) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("http request")
	}
}

func Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong\n")
}

// Chains reports the latest block number of every configured domain.
func (h *HttpReporter) Chains(c *gin.Context) {
	statuses := make([]ChainStatus, 0, len(h.domains))
	for _, domain := range h.domains {
		s := ChainStatus{Domain: domain}
		num, err := h.chains.GetBlockNumber(c.Request.Context(), domain)
		if err != nil {
			s.Error = err.Error()
		} else {
			s.BlockNumber = num
		}
		statuses = append(statuses, s)
	}
	c.JSON(http.StatusOK, gin.H{"chains": statuses})
}

// PostBid validates a router's bid and adds it to the transfer's auction.
func (h *HttpReporter) PostBid(c *gin.Context) {
	transferID := c.Param("transferId")
	if !common.IsBytes32Hex(transferID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transferId must be a 32 byte hex string"})
		return
	}

	var req BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.isDomain(req.Origin) || !h.isDomain(req.Destination) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination must be configured domains"})
		return
	}
	if !common.IsValidEthAddress(req.Router) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "router must be an address"})
		return
	}

	bid := agreement.Bid{
		Router:    common.NormalizeAddress(req.Router),
		Fee:       req.Fee,
		Signature: req.Signature,
	}
	fee, ok := bid.FeeInt()
	if !ok || fee.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee must be a non-negative integer"})
		return
	}
	signer, err := contracts.RecoverBidSigner(transferID, fee, req.Signature)
	if err != nil || signer != bid.Router {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bid signature does not match router"})
		return
	}

	now := h.clock.Now()
	bid.ReceivedAt = now
	auction, err := h.auctions.UpsertAuction(c.Request.Context(), transferID, req.Origin, req.Destination, bid, now)
	switch {
	case errors.Is(err, cache.ErrAuctionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.WithField("transferId", transferID).WithError(err).Error("failed to store bid")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store bid"})
		return
	}

	h.log.WithFields(logger.Fields{
		"transferId": transferID,
		"router":     bid.Router,
		"fee":        bid.Fee,
		"bids":       len(auction.Bids),
	}).Info("Bid received")
	c.JSON(http.StatusOK, gin.H{"data": auction})
}

func (h *HttpReporter) GetAuction(c *gin.Context) {
	transferID := c.Param("transferId")

	auction, ok, err := h.auctions.GetAuction(c.Request.Context(), transferID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No auction found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": auction})
}

func (h *HttpReporter) isDomain(domain string) bool {
	for _, d := range h.domains {
		if d == domain {
			return true
		}
	}
	return false
}
