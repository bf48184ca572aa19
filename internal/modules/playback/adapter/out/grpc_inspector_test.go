package out_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out"
	inspectorrpc "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out/rpc"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
)

func dialInspector(t *testing.T) inspectorrpc.AssetInspectorClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	inspectorrpc.RegisterAssetInspectorServer(server, playbackout.NewInspectorServer(playbackout.NewFSInspector(), "fs-inspector", "1.0.0"))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return inspectorrpc.NewAssetInspectorClient(conn)
}

func TestInspectorContractOverGRPC(t *testing.T) {
	t.Parallel()
	client := dialInspector(t)
	ctx := context.Background()

	desc, err := client.Describe(ctx)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if desc.Name != "fs-inspector" || desc.Version != "1.0.0" {
		t.Fatalf("unexpected description %+v", desc)
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"illust_dating12.atlas": "illust_dating12.png\n",
		"illust_dating12.skel":  "x",
	})
	resp, err := client.Inspect(ctx, &inspectorrpc.InspectRequest{FolderPath: dir})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	meta, err := playbackout.DecodeInspectResponse(resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.SkeletonFilename != "illust_dating12.skel" || meta.ModType != "dating" || meta.ModID != "12" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestInspectorFailuresSurviveTheWire(t *testing.T) {
	t.Parallel()
	client := dialInspector(t)
	ctx := context.Background()

	resp, err := client.Inspect(ctx, &inspectorrpc.InspectRequest{FolderPath: filepath.Join(t.TempDir(), "gone")})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	_, decodeErr := playbackout.DecodeInspectResponse(resp)
	if !errors.Is(decodeErr, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected directory not found, got %v", decodeErr)
	}
	if got := domain.ClassifyInspectionError(decodeErr); got == nil || got.Kind != domain.KindDirectoryNotFound {
		t.Fatalf("expected classified not found, got %v", got)
	}

	empty := t.TempDir()
	resp, err = client.Inspect(ctx, &inspectorrpc.InspectRequest{FolderPath: empty})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	_, err = playbackout.DecodeInspectResponse(resp)
	var invalid *domain.DirectoryInvalid
	if !errors.As(err, &invalid) || invalid.Part2 != empty {
		t.Fatalf("expected invalid directory, got %v", err)
	}
	if got := domain.ClassifyInspectionError(err); got == nil || len(got.Diagnostic) != 2 || got.Diagnostic[1] != empty {
		t.Fatalf("expected both diagnostic parts after the wire, got %+v", got)
	}
}

func TestDecodeInspectResponseOtherFailure(t *testing.T) {
	t.Parallel()
	_, err := playbackout.DecodeInspectResponse(&inspectorrpc.InspectResponse{FailureCode: inspectorrpc.FailureOther, FailurePart1: "permission denied"})
	if err == nil || err.Error() != "permission denied" {
		t.Fatalf("expected opaque failure, got %v", err)
	}
	if got := domain.ClassifyInspectionError(err); got.Kind != domain.KindUnknown {
		t.Fatalf("expected unknown kind, got %v", got)
	}
}
