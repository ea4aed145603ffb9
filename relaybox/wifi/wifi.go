//go:build tinygo

// Package wifi brings up the Pico W's CYW43439 radio and an lneto network
// stack for the relay box's optional state telemetry.
//
// Credentials and the broker address are baked in at build time:
//
//	tinygo flash -target=pico-w -ldflags="-X github.com/harveysanders/relaybox/relaybox/wifi.ssid=home -X github.com/harveysanders/relaybox/relaybox/wifi.pass=secret -X github.com/harveysanders/relaybox/relaybox/wifi.broker=10.0.0.9:1883" ./relaybox
//
// Setup follows the soypat/cyw43439 examples.
package wifi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"runtime"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"
)

const mtu = cyw43439.MTU

var (
	ssid   string
	pass   string
	broker string
)

// Enabled reports whether Wi-Fi credentials were set at build time.
func Enabled() bool { return ssid != "" }

// Broker returns the MQTT broker host:port set at build time.
func Broker() string { return broker }

// Config configures Up.
type Config struct {
	// Hostname is used for DHCP requests. Required.
	Hostname string
	// MaxTCPPorts is the number of TCP connections the stack can hold.
	MaxTCPPorts int
	// JoinRetry is the wait between failed join attempts.
	JoinRetry time.Duration
	Logger    *slog.Logger
}

// Stack is a joined radio plus its lneto stack.
type Stack struct {
	s       xnet.StackAsync
	dev     *cyw43439.Device
	log     *slog.Logger
	sendbuf []byte
}

// Up initialises the radio, joins the configured network (retrying until it
// succeeds), and leases an address over DHCP.
func Up(cfg Config) (*Stack, error) {
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	retry := cfg.JoinRetry
	if retry <= 0 {
		retry = 5 * time.Second
	}

	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)
	if err := dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, errors.New("wifi init:" + err.Error())
	}
	logger.Info("wifi:init", slog.Duration("took", time.Since(start)))

	for {
		err := dev.JoinWPA2(ssid, pass)
		if err == nil {
			break
		}
		logger.Error("wifi:join-failed", slog.String("ssid", ssid), slog.String("err", err.Error()))
		time.Sleep(retry)
	}

	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("wifi hardware address:" + err.Error())
	}
	logger.Info("wifi:joined", slog.String("ssid", ssid), slog.String("mac", net.HardwareAddr(mac[:]).String()))

	st := &Stack{dev: dev, log: logger, sendbuf: make([]byte, mtu)}
	maxTCP := cfg.MaxTCPPorts
	if maxTCP < 1 {
		maxTCP = 1
	}
	err = st.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     maxTCP,
		RandSeed:        time.Since(start).Nanoseconds(),
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset:" + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return st.s.Demux(pkt, 0)
	})

	// The stack only moves packets while Poll runs.
	go st.Poll(context.Background())

	if err := st.dhcp(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Stack) dhcp() error {
	rstack := s.s.StackRetrying(50 * time.Millisecond)
	res, err := rstack.DoDHCPv4([4]byte{}, 3*time.Second, 3)
	if err != nil {
		return errors.New("dhcp:" + err.Error())
	}
	if err := s.s.AssimilateDHCPResults(res); err != nil {
		return errors.New("assimilate dhcp:" + err.Error())
	}
	gw, err := rstack.DoResolveHardwareAddress6(res.Router, 500*time.Millisecond, 4)
	if err != nil {
		return errors.New("resolve gateway:" + err.Error())
	}
	s.s.SetGateway6(gw)
	s.log.Info("dhcp:done",
		slog.String("ip", res.AssignedAddr.String()),
		slog.String("router", res.Router.String()),
	)
	return nil
}

// Poll moves packets between the radio and the stack until ctx is done.
func (s *Stack) Poll(ctx context.Context) {
	for ctx.Err() == nil {
		got, err := s.dev.PollOne()
		if err != nil {
			s.log.Error("wifi:poll", slog.String("err", err.Error()))
		}
		n, err := s.s.Encapsulate(s.sendbuf, -1, 0)
		if err != nil {
			s.log.Error("wifi:encapsulate", slog.String("err", err.Error()))
		}
		if n > 0 {
			if err := s.dev.SendEth(s.sendbuf[:n]); err != nil {
				s.log.Error("wifi:send", slog.Int("plen", n), slog.String("err", err.Error()))
			}
		}
		if !got && n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		runtime.Gosched()
	}
}

// Lneto returns the network stack for dialing.
func (s *Stack) Lneto() *xnet.StackAsync { return &s.s }

// Addr returns the leased IP address.
func (s *Stack) Addr() netip.Addr { return s.s.Addr() }
