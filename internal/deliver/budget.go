package deliver

import (
	"net"
	"net/http"
	"time"

	"relay/internal/config"
)

const bytesPerMB = 1024 * 1024

// Timeouts is the per-call timeout tuple handed to a sink.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// Total is the overall deadline for one transfer.
func (t Timeouts) Total() time.Duration {
	return t.Connect + t.Read + t.Write
}

// HTTPClient returns a client whose dial, TLS handshake and response header
// waits follow t, with an overall deadline of Total.
func (t Timeouts) HTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: t.Total()}
}

// Budget scales base timeouts by payload size:
// multiplier = clamp(sizeMB / StepMB, 1, MaxMultiplier).
type Budget struct {
	Base          Timeouts
	StepMB        float64
	MaxMultiplier float64
}

// BudgetFromConfig reads the deliver section.
func BudgetFromConfig(cfg *config.Config) Budget {
	if cfg == nil {
		return Budget{}
	}
	return Budget{
		Base: Timeouts{
			Connect: time.Duration(cfg.Deliver.ConnectTimeout) * time.Second,
			Read:    time.Duration(cfg.Deliver.ReadTimeout) * time.Second,
			Write:   time.Duration(cfg.Deliver.WriteTimeout) * time.Second,
		},
		StepMB:        float64(cfg.Deliver.TimeoutStepMB),
		MaxMultiplier: float64(cfg.Deliver.TimeoutMaxMultiplier),
	}
}

// Multiplier returns the scale factor applied for size bytes.
func (b Budget) Multiplier(size int64) float64 {
	if b.StepMB <= 0 || size <= 0 {
		return 1
	}
	m := float64(size) / bytesPerMB / b.StepMB
	if m < 1 {
		m = 1
	}
	if b.MaxMultiplier >= 1 && m > b.MaxMultiplier {
		m = b.MaxMultiplier
	}
	return m
}

// For returns the timeouts for a payload of size bytes.
func (b Budget) For(size int64) Timeouts {
	m := b.Multiplier(size)
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * m)
	}
	return Timeouts{
		Connect: scale(b.Base.Connect),
		Read:    scale(b.Base.Read),
		Write:   scale(b.Base.Write),
	}
}
