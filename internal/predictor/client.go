package predictor

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region methods
// The model service speaks google.protobuf.Struct in both directions so the
// Python side needs no generated stubs.
const (
	methodDescribe = "/thermal.v1.Predictor/Describe"
	methodPredict  = "/thermal.v1.Predictor/Predict"
)

// #endregion methods

// #region client-struct
// Client wraps the gRPC connection to the thermal model service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface

	mu         sync.RWMutex
	components map[string]bool
}

// #endregion client-struct

// #region constructor
// NewClient connects to the thermal model gRPC server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an injected connection.
// Used for testing without a real gRPC server.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region describe
// Describe fetches the model's declared component names. It must be called
// before DeclaresComponent returns anything but false.
func (c *Client) Describe(ctx context.Context) ([]string, error) {
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, methodDescribe, &structpb.Struct{}, resp); err != nil {
		return nil, fmt.Errorf("describe rpc: %w", err)
	}
	list := resp.GetFields()["components"].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("describe rpc: response has no components list")
	}

	names := make([]string, 0, len(list.GetValues()))
	declared := make(map[string]bool, len(list.GetValues()))
	for _, v := range list.GetValues() {
		name := v.GetStringValue()
		if name == "" {
			continue
		}
		names = append(names, name)
		declared[name] = true
	}

	c.mu.Lock()
	c.components = declared
	c.mu.Unlock()
	return names, nil
}

// DeclaresComponent reports whether the last Describe listed name.
func (c *Client) DeclaresComponent(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.components[name]
}

// #endregion describe

// #region predict
// Predict sends the schedule and seeds and decodes the component series.
func (c *Client) Predict(ctx context.Context, req Request) (Prediction, error) {
	msg, err := encodeRequest(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode predict request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, methodPredict, msg, resp); err != nil {
		return Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}
	return decodePrediction(resp, req.Start)
}

// #endregion predict

// #region codec
func encodeRequest(req Request) (*structpb.Struct, error) {
	states := make([]any, len(req.States))
	for i, st := range req.States {
		values := make(map[string]any, len(st.Values))
		for k, v := range st.Values {
			values[k] = v
		}
		states[i] = map[string]any{
			"tstart": st.Start,
			"tstop":  st.Stop,
			"values": values,
		}
	}
	seeds := make(map[string]any, len(req.Seeds))
	for node, s := range req.Seeds {
		if !s.Defined() {
			continue
		}
		seeds[node] = map[string]any{
			"msid":   s.Quantity,
			"value":  s.Value,
			"source": string(s.Source),
		}
	}
	return structpb.NewStruct(map[string]any{
		"check":  req.Check,
		"msid":   req.MSID,
		"tstart": req.Start,
		"tstop":  req.Stop,
		"states": states,
		"seeds":  seeds,
	})
}

func decodePrediction(resp *structpb.Struct, start float64) (Prediction, error) {
	comps := resp.GetFields()["components"].GetStructValue()
	if comps == nil {
		return Prediction{}, checkerr.Unavailablef("prediction", start, "response has no components")
	}
	out := Prediction{Components: make(map[string]series.Series, len(comps.GetFields()))}
	for name, v := range comps.GetFields() {
		body := v.GetStructValue()
		if body == nil {
			return Prediction{}, checkerr.Unavailablef(name, start, "component body is not an object")
		}
		times := floats(body.GetFields()["times"])
		values := floats(body.GetFields()["values"])
		s, err := series.New(name, times, values)
		if err != nil {
			return Prediction{}, fmt.Errorf("decode component %s: %w", name, err)
		}
		out.Components[name] = s
	}
	return out, nil
}

func floats(v *structpb.Value) []float64 {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]float64, len(list.GetValues()))
	for i, x := range list.GetValues() {
		out[i] = x.GetNumberValue()
	}
	return out
}

// #endregion codec
