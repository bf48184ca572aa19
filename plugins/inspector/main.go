package main

import (
	"github.com/hashicorp/go-plugin"

	playbackadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out"
	inspectorrpc "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out/rpc"
)

func main() {
	server := playbackadapter.NewInspectorServer(playbackadapter.NewFSInspector(), "fs-inspector", "1.0.0")
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: inspectorrpc.HandshakeConfig,
		Plugins:         inspectorrpc.PluginMap(server),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
