package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	inspectorrpc "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out/rpc"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 10 * time.Second
)

// GRPCInspector runs asset inspection in an out-of-process plugin binary.
type GRPCInspector struct {
	binary string
	logger hclog.Logger
}

func NewGRPCInspector(binary string, logger hclog.Logger) *GRPCInspector {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GRPCInspector{binary: binary, logger: logger.Named("inspector-plugin")}
}

func (g *GRPCInspector) Describe(ctx context.Context) (string, string, error) {
	client, closeFn, err := g.connect(ctx)
	if err != nil {
		return "", "", err
	}
	defer closeFn()
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	desc, err := client.Describe(callCtx)
	if err != nil {
		return "", "", fmt.Errorf("describe inspector: %w", err)
	}
	return desc.Name, desc.Version, nil
}

func (g *GRPCInspector) Inspect(ctx context.Context, folder string) (domain.AssetMetadata, error) {
	client, closeFn, err := g.connect(ctx)
	if err != nil {
		return domain.AssetMetadata{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	resp, err := client.Inspect(callCtx, &inspectorrpc.InspectRequest{FolderPath: folder})
	if err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("inspect %s: %w", folder, err)
	}
	return DecodeInspectResponse(resp)
}

func (g *GRPCInspector) connect(ctx context.Context) (inspectorrpc.AssetInspectorClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  inspectorrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          inspectorrpc.PluginMap(nil),
		Cmd:              exec.CommandContext(ctx, g.binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           g.logger,
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start inspector plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(inspectorrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense inspector: %w", err)
	}
	typed, ok := raw.(inspectorrpc.AssetInspectorClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("inspector rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// DecodeInspectResponse turns the wire failure code back into the inspector error contract.
func DecodeInspectResponse(resp *inspectorrpc.InspectResponse) (domain.AssetMetadata, error) {
	switch resp.FailureCode {
	case "":
	case inspectorrpc.FailureDirectoryNotFound:
		return domain.AssetMetadata{}, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, resp.FailurePart2)
	case inspectorrpc.FailureDirectoryInvalid:
		return domain.AssetMetadata{}, &domain.DirectoryInvalid{Part1: resp.FailurePart1, Part2: resp.FailurePart2}
	default:
		return domain.AssetMetadata{}, errors.New(resp.FailurePart1)
	}
	return domain.AssetMetadata{
		SkeletonFilename: resp.SkeletonFilename,
		AtlasFilename:    resp.AtlasFilename,
		RawData:          resp.RawData,
		ModType:          resp.ModType,
		ModID:            resp.ModID,
	}, nil
}

// InspectorServer exposes any Inspector over the plugin contract.
type InspectorServer struct {
	inspector playbackout.Inspector
	name      string
	version   string
}

func NewInspectorServer(inspector playbackout.Inspector, name, version string) *InspectorServer {
	return &InspectorServer{inspector: inspector, name: name, version: version}
}

func (s *InspectorServer) Describe(_ context.Context, _ *inspectorrpc.Empty) (*inspectorrpc.Description, error) {
	return &inspectorrpc.Description{Name: s.name, Version: s.version}, nil
}

// Inspect reports inspection failures in the response body so the typed contract survives the wire.
func (s *InspectorServer) Inspect(ctx context.Context, in *inspectorrpc.InspectRequest) (*inspectorrpc.InspectResponse, error) {
	meta, err := s.inspector.Inspect(ctx, in.FolderPath)
	if err != nil {
		var invalid *domain.DirectoryInvalid
		switch {
		case errors.Is(err, domain.ErrDirectoryNotFound):
			return &inspectorrpc.InspectResponse{FailureCode: inspectorrpc.FailureDirectoryNotFound, FailurePart2: in.FolderPath}, nil
		case errors.As(err, &invalid):
			return &inspectorrpc.InspectResponse{
				FailureCode:  inspectorrpc.FailureDirectoryInvalid,
				FailurePart1: invalid.Part1,
				FailurePart2: invalid.Part2,
			}, nil
		default:
			return &inspectorrpc.InspectResponse{FailureCode: inspectorrpc.FailureOther, FailurePart1: err.Error()}, nil
		}
	}
	return &inspectorrpc.InspectResponse{
		SkeletonFilename: meta.SkeletonFilename,
		AtlasFilename:    meta.AtlasFilename,
		RawData:          meta.RawData,
		ModType:          meta.ModType,
		ModID:            meta.ModID,
	}, nil
}
