package main

import (
	"context"
	"fmt"
	"net"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/formfill/internal/codec"
	"github.com/danielpatrickdp/formfill/internal/config"
	"github.com/danielpatrickdp/formfill/internal/embedding"
	"github.com/danielpatrickdp/formfill/internal/generative"
	"github.com/danielpatrickdp/formfill/internal/logging"
	"github.com/danielpatrickdp/formfill/internal/tool"
)

// #region mcp
func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the form-filling tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			server := tool.NewServer(svc, version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// #endregion mcp

// #region serve-codec
func newServeCodecCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-codec",
		Short: "Expose the local ONNX encoder and Gemini provider over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return serveCodec(cmd.Context(), cfg, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "localhost:50051", "gRPC listen address")
	return cmd
}

func serveCodec(ctx context.Context, cfg *config.Config, listen string) error {
	logger := logging.New("CODEC")
	adapter := &codec.Adapter{}

	enc, err := embedding.NewEncoder(embedding.EncoderConfig{
		SharedLibrary: cfg.Embedding.SharedLibrary,
		ModelPath:     cfg.Embedding.ModelPath,
		TokenizerPath: cfg.Embedding.TokenizerPath,
		MaxSeqLen:     cfg.Embedding.MaxSeqLen,
		Dim:           cfg.Embedding.Dim,
		TokenTypes:    true,
	})
	if err != nil {
		logger.Warn("embedding disabled", "model", cfg.Embedding.ModelPath, "err", err)
	} else {
		defer enc.Close()
		adapter.Embedder = enc
	}

	if cfg.Generative.APIKey != "" {
		g, err := generative.NewGemini(ctx, cfg.Generative.APIKey, cfg.Generative.Model, logger.WithPrefix("GEN"))
		if err != nil {
			logger.Warn("suggestions disabled", "err", err)
		} else {
			defer g.Close()
			adapter.Provider = generative.WithRateLimit(g, cfg.Generative.RateLimit, cfg.Generative.Burst)
		}
	}
	if adapter.Embedder == nil && adapter.Provider == nil {
		return fmt.Errorf("nothing to serve: no encoder model and no generative api key")
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	srv, errc := codec.Serve(lis, adapter)
	logger.Info("codec service listening", "addr", lis.Addr().String(),
		"embed", adapter.Embedder != nil, "suggest", adapter.Provider != nil)

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	case err := <-errc:
		return err
	}
}

// #endregion serve-codec
