package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/service"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type depsFunc func(cmd *cobra.Command) *deps

func newLoginCmd(open depsFunc) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the ingestion service and keep the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := open(cmd)
			defer d.close()

			if password == "" {
				password = os.Getenv("DASHBOARD_PASSWORD")
			}
			res, err := d.auth.Login(cmd.Context(), username, password)
			if err != nil {
				return userError(err, domain.MsgLoginFailed)
			}

			info := sessionInfo(d.session)
			info.Username = res.Username
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (default $DASHBOARD_PASSWORD)")
	return cmd
}

func newLogoutCmd(open depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := open(cmd)
			defer d.close()

			d.auth.Logout()
			return printJSON(cmd.OutOrStdout(), domain.SuccessResponse{Message: "Sessão encerrada"})
		},
	}
}

func newSessionCmd(open depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show whether a session is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := open(cmd)
			defer d.close()
			return printJSON(cmd.OutOrStdout(), sessionInfo(d.session))
		},
	}
}

func newLoadCmd(open depsFunc) *cobra.Command {
	var start, end, payment, view string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load metrics and the daily series under the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := domain.ParseFilterSet(start, end, payment)
			if err != nil {
				return err
			}
			mode, err := domain.ParseViewMode(view)
			if err != nil {
				return err
			}

			d := open(cmd)
			defer d.close()

			d.dash.SetViewMode(mode)
			state := d.dash.ApplyFilters(cmd.Context(), filters)
			if err := printJSON(cmd.OutOrStdout(), d.dash.View()); err != nil {
				return err
			}
			if state.Phase == domain.LoadFailed {
				return errors.New(state.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&payment, "payment", "", "payment method: credit_card, boleto or pix")
	cmd.Flags().StringVar(&view, "view", "revenue", "view mode: revenue or orders")
	return cmd
}

func newSyncCmd(open depsFunc) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger the ingestion pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := open(cmd)
			defer d.close()

			ack, err := d.dash.Sync(cmd.Context())
			if err != nil {
				return userError(err, domain.MsgSyncFailed)
			}
			return finishSync(cmd, d, ack, wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the post-sync reload and print the dashboard")
	return cmd
}

func newUploadCmd(open depsFunc) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV file and trigger the ingestion pipeline with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := service.Accept(withProgress(domain.CandidateFromPath(args[0]), cmd.ErrOrStderr()))
			if err != nil {
				return userError(err, "")
			}

			d := open(cmd)
			defer d.close()

			ack, err := d.dash.SyncWithFile(cmd.Context(), handle)
			if err != nil {
				return userError(err, domain.MsgUploadFailed)
			}
			return finishSync(cmd, d, ack, wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the post-sync reload and print the dashboard")
	return cmd
}

// finishSync prints the acknowledgment and, with wait, the reloaded view.
func finishSync(cmd *cobra.Command, d *deps, ack *domain.JobAck, wait bool) error {
	if !wait {
		return printJSON(cmd.OutOrStdout(), domain.SyncResponse{Job: ack, Sync: d.dash.SyncStatus()})
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), d.cfg.SyncReloadDelay+d.cfg.HTTPTimeout+5*time.Second)
	defer cancel()
	if err := d.dash.WaitReload(ctx); err != nil {
		return fmt.Errorf("waiting for reload: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), d.dash.View())
}

// withProgress reports reads of the candidate on w.
func withProgress(c *domain.CandidateFile, w io.Writer) *domain.CandidateFile {
	if c == nil || c.Open == nil {
		return c
	}
	open := c.Open
	wrapped := *c
	wrapped.Open = func() (io.ReadCloser, error) {
		src, err := open()
		if err != nil {
			return nil, err
		}
		bar := progressbar.NewOptions64(c.Size,
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription("enviando "+c.Name),
			progressbar.OptionClearOnFinish(),
		)
		return struct {
			io.Reader
			io.Closer
		}{io.TeeReader(src, bar), src}, nil
	}
	return &wrapped
}

func sessionInfo(s *service.SessionStore) domain.SessionInfo {
	info := domain.SessionInfo{Authenticated: s.Authenticated()}
	if exp, ok := s.ExpiresAt(); ok {
		info.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return info
}

// userError turns a domain error into the message a terminal user should see.
func userError(err error, fallback string) error {
	var ve *domain.ErrValidation
	if errors.As(err, &ve) {
		return errors.New(ve.Message)
	}
	var ue *domain.ErrUnauthorized
	if errors.As(err, &ue) {
		return errors.New(ue.Error())
	}
	if fallback == "" {
		return err
	}
	return errors.New(domain.UserMessage(err, fallback))
}
