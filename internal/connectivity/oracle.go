package connectivity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"multasync/internal/constants"

	"github.com/sirupsen/logrus"
)

// NetworkStatus is what a native connectivity probe reports. Having a
// network interface is not the same as having internet access; both
// must hold before the device counts as online.
type NetworkStatus struct {
	Connected         bool
	InternetReachable bool
}

// NativeProbe is the platform network-state signal. Implementations
// that cannot determine reachability should return an error so the
// oracle falls through to the HTTP probe.
type NativeProbe interface {
	Status(ctx context.Context) (NetworkStatus, error)
}

// ErrReachabilityUnknown is returned by probes that can see interface
// state but cannot vouch for actual internet access.
var ErrReachabilityUnknown = errors.New("internet reachability unknown")

// InterfaceProbe is the default native probe: it scans the host's
// network interfaces. A device with no usable interface is offline
// without any network traffic; a device with one still needs the HTTP
// reachability check.
type InterfaceProbe struct{}

func (InterfaceProbe) Status(ctx context.Context) (NetworkStatus, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return NetworkStatus{}, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return NetworkStatus{Connected: true}, ErrReachabilityUnknown
	}

	return NetworkStatus{Connected: false, InternetReachable: false}, nil
}

// Oracle answers the single question "are we online right now". It
// never returns an error: every internal failure collapses to offline,
// which steers callers toward the safe queue-locally branch.
type Oracle struct {
	probe        NativeProbe
	client       *http.Client
	baseURL      string
	probeTimeout time.Duration
	logger       *logrus.Logger
}

func NewOracle(probe NativeProbe, baseURL string, probeTimeoutSec int, logger *logrus.Logger) *Oracle {
	if probeTimeoutSec <= 0 {
		probeTimeoutSec = constants.DefaultProbeTimeoutSec
	}
	return &Oracle{
		probe:        probe,
		client:       &http.Client{},
		baseURL:      baseURL,
		probeTimeout: time.Duration(probeTimeoutSec) * time.Second,
		logger:       logger,
	}
}

// IsOnline re-probes on every call; connectivity on a moving vehicle is
// too volatile to cache.
func (o *Oracle) IsOnline(ctx context.Context) bool {
	if o.probe != nil {
		status, err := o.probe.Status(ctx)
		if err == nil {
			return status.Connected && status.InternetReachable
		}
		if !status.Connected && errors.Is(err, ErrReachabilityUnknown) {
			return false
		}
		o.logger.WithField("component", "connectivity").
			WithError(err).Debug("Native probe unavailable, falling back to HTTP probe")
	}

	return o.headProbe(ctx)
}

func (o *Oracle) headProbe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, o.baseURL+"/", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		o.logger.WithField("component", "connectivity").
			WithError(err).Debug("Reachability probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
