package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/adapter/oidc"
	"github.com/authchain/authchain/internal/config"
	"github.com/authchain/authchain/internal/daemon"
	"github.com/authchain/authchain/internal/web/handler/whoami"
)

func init() { //nolint: gochecknoinits
	verifyCmd.Flags().StringVar(&authorization, "authorization", "", "Authorization header value")
	verifyCmd.Flags().StringVar(&accessToken, "access-token", "", "access_token query parameter value")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "Overall authentication timeout")

	rootCmd.AddCommand(verifyCmd)
}

var (
	authorization string
	accessToken   string
	verifyTimeout time.Duration

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Authenticate the given credentials against the configured chain",
		Long: `verify runs the configured adapter chain once for the given credentials
and prints the resolved identity as JSON. It exits non-zero if no adapter
authenticates the credentials.`,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			if cfg, err = config.ReadConfig(configPath); err != nil {
				return err //nolint:wrapcheck
			}

			return daemon.Init(&cfg) //nolint:wrapcheck
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			authService, err := daemon.NewAuthService(&cfg)
			if err != nil {
				return err //nolint:wrapcheck
			}

			req := auth.StaticRequest{
				Headers: http.Header{},
				Params:  url.Values{},
			}

			if authorization != "" {
				req.Headers.Set(auth.HeaderAuthorization, authorization)
			}

			if accessToken != "" {
				req.Params.Set(oidc.QueryAccessToken, accessToken)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
			defer cancel()

			identity, err := authService.RequireOne(ctx, req)
			if err != nil {
				return err //nolint:wrapcheck
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(whoami.NewResponse(identity)) //nolint:wrapcheck
		},
	}
)
