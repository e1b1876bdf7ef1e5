// Package opcuasrc reads IR and OCV from a bench cycler that exposes its
// measurements as OPC UA nodes. Each Read performs one synchronous
// attribute read of the two configured nodes.
package opcuasrc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	IRNodeID        string        `yaml:"ir_node_id"`
	OCVNodeID       string        `yaml:"ocv_node_id"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "IR/OCV Recorder"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.IRNodeID == "" {
		return errors.New("ir_node_id is required")
	}
	if c.OCVNodeID == "" {
		return errors.New("ocv_node_id is required")
	}
	return nil
}

type Source struct {
	cfg     Config
	mu      sync.Mutex
	client  *opcua.Client
	irNode  *ua.NodeID
	ocvNode *ua.NodeID
}

// Open connects to the endpoint and resolves the two node IDs.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	irNode, err := ua.ParseNodeID(cfg.IRNodeID)
	if err != nil {
		return nil, fmt.Errorf("parse ir node id %q: %w", cfg.IRNodeID, err)
	}
	ocvNode, err := ua.ParseNodeID(cfg.OCVNodeID)
	if err != nil {
		return nil, fmt.Errorf("parse ocv node id %q: %w", cfg.OCVNodeID, err)
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(cfg.SecurityPolicy)),
		opcua.ApplicationName(cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	client, err := opcua.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("opcua connect %s: %w", cfg.Endpoint, err)
	}

	return &Source{cfg: cfg, client: client, irNode: irNode, ocvNode: ocvNode}, nil
}

// Read fetches the current value attribute of both nodes. A bad status on
// one node leaves that field nil so the validator rejects the reading
// without stopping the loop.
func (s *Source) Read(ctx context.Context) (domain.RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return domain.RawReading{}, &domain.TransportError{Source: "opcua", Err: errors.New("client closed")}
	}

	req := &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: s.irNode, AttributeID: ua.AttributeIDValue},
			{NodeID: s.ocvNode, AttributeID: ua.AttributeIDValue},
		},
	}

	resp, err := s.client.Read(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.RawReading{}, err
		}
		return domain.RawReading{}, &domain.TransportError{Source: "opcua", Err: err}
	}
	if len(resp.Results) != 2 {
		return domain.RawReading{}, &domain.TransportError{
			Source: "opcua",
			Err:    fmt.Errorf("expected 2 read results, got %d", len(resp.Results)),
		}
	}

	var raw domain.RawReading
	raw.IR = valueOf(resp.Results[0])
	raw.OCV = valueOf(resp.Results[1])
	return raw, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Close(ctx)
	s.client = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func valueOf(dv *ua.DataValue) *float64 {
	if dv == nil || dv.Status != ua.StatusOK {
		return nil
	}
	if v, ok := variantToFloat(dv.Value); ok {
		return &v
	}
	return nil
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Source = (*Source)(nil)
