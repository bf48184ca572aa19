package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey   = "inspector"
	serviceName    = "modpreview.inspector.v1.AssetInspector"
	jsonCodecName  = "json"
	methodDescribe = "/" + serviceName + "/Describe"
	methodInspect  = "/" + serviceName + "/Inspect"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "MODPREVIEW_INSPECTOR",
	MagicCookieValue: "modpreview",
}

// Failure codes carried in InspectResponse.FailureCode.
const (
	FailureDirectoryNotFound = "directory_not_found"
	FailureDirectoryInvalid  = "directory_invalid"
	FailureOther             = "other"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Description struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InspectRequest struct {
	FolderPath string `json:"folder_path"`
}

type InspectResponse struct {
	SkeletonFilename string            `json:"skeleton_filename"`
	AtlasFilename    string            `json:"atlas_filename"`
	RawData          map[string]string `json:"raw_data,omitempty"`
	ModType          string            `json:"mod_type,omitempty"`
	ModID            string            `json:"mod_id,omitempty"`
	FailureCode      string            `json:"failure_code,omitempty"`
	FailurePart1     string            `json:"failure_part1,omitempty"`
	FailurePart2     string            `json:"failure_part2,omitempty"`
}

type AssetInspectorServer interface {
	Describe(ctx context.Context, in *Empty) (*Description, error)
	Inspect(ctx context.Context, in *InspectRequest) (*InspectResponse, error)
}

type AssetInspectorClient interface {
	Describe(ctx context.Context) (*Description, error)
	Inspect(ctx context.Context, in *InspectRequest) (*InspectResponse, error)
}

type assetInspectorClient struct {
	conn *grpc.ClientConn
}

func NewAssetInspectorClient(conn *grpc.ClientConn) AssetInspectorClient {
	return &assetInspectorClient{conn: conn}
}

func (c *assetInspectorClient) Describe(ctx context.Context) (*Description, error) {
	out := &Description{}
	if err := c.conn.Invoke(ctx, methodDescribe, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assetInspectorClient) Inspect(ctx context.Context, in *InspectRequest) (*InspectResponse, error) {
	out := &InspectResponse{}
	if err := c.conn.Invoke(ctx, methodInspect, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterAssetInspectorServer(server grpc.ServiceRegistrar, impl AssetInspectorServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AssetInspectorServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Describe",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Describe(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDescribe}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Describe(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Inspect",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &InspectRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Inspect(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInspect}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*InspectRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Inspect(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/inspector-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AssetInspectorServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAssetInspectorServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAssetInspectorClient(conn), nil
}

func PluginMap(impl AssetInspectorServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
