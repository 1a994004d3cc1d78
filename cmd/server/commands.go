package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"

	"github.com/cgportal/feedback-backend/internal/database"
	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/seed"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store/mongostore"
)

func (a *app) initDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connectMongo(); err != nil {
				return err
			}
			defer database.Disconnect()

			if err := database.EnsureIndexes(cmd.Context(), database.DB, a.log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		},
	}
}

func (a *app) seedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert starter users and departments",
		Long:  "Upsert users and departments from a YAML file, or the built-in defaults when --file is omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := seed.Load(file)
			if err != nil {
				return err
			}
			if err := a.connectMongo(); err != nil {
				return err
			}
			defer database.Disconnect()

			res, err := seed.Apply(cmd.Context(), data,
				mongostore.NewUserStore(database.DB),
				mongostore.NewDepartmentStore(database.DB),
				a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users: %d created, %d updated\ndepartments: %d created, %d updated\n",
				res.UsersCreated, res.UsersUpdated, res.DepartmentsCreated, res.DepartmentsUpdated)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed YAML file")
	return cmd
}

func (a *app) verifyCredentialsCommand() *cobra.Command {
	var username, password, kind string
	cmd := &cobra.Command{
		Use:   "verify-credentials",
		Short: "Check a username and password against the user collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loginKind := services.LoginKind(kind)
			if loginKind != services.LoginAdmin && loginKind != services.LoginExecutive {
				return fmt.Errorf("--kind must be admin or executive, got %q", kind)
			}
			if err := a.connectMongo(); err != nil {
				return err
			}
			defer database.Disconnect()

			out := cmd.OutOrStdout()
			user, err := services.CheckCredentials(cmd.Context(), mongostore.NewUserStore(database.DB), loginKind, username, password)
			switch {
			case errors.Is(err, services.ErrInvalidCredentials):
				fmt.Fprintln(out, "invalid credentials")
				return err
			case errors.Is(err, services.ErrInactiveAccount):
				fmt.Fprintln(out, "account is inactive")
				return err
			case err != nil:
				return err
			}
			fmt.Fprintf(out, "ok: %s (%s, active=%t)\n", user.Username, user.Type, user.Active)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to check")
	cmd.Flags().StringVar(&password, "password", "", "password to check")
	cmd.Flags().StringVar(&kind, "kind", string(services.LoginAdmin), "login kind: admin or executive")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) unblockIPCommand() *cobra.Command {
	var ip string
	cmd := &cobra.Command{
		Use:   "unblock-ip",
		Short: "Lift a login rate-limit block for an IP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if net.ParseIP(ip) == nil {
				return fmt.Errorf("--ip must be an IP address, got %q", ip)
			}
			if err := database.ConnectRedis(a.cfg.RedisURI, a.log); err != nil {
				return fmt.Errorf("connect to Redis: %w", err)
			}
			defer database.DisconnectRedis()

			return unblockIP(cmd.Context(), middleware.NewRedisAttempts(database.RedisClient), ip, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "client IP to unblock")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}

func unblockIP(ctx context.Context, counter middleware.AttemptCounter, ip string, out io.Writer) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("--ip must be an IP address, got %q", ip)
	}

	blocked, err := counter.Blocked(ctx, ip)
	if err != nil {
		return fmt.Errorf("check %s: %w", ip, err)
	}
	if err := counter.Unblock(ctx, ip); err != nil {
		return fmt.Errorf("unblock %s: %w", ip, err)
	}
	if blocked {
		fmt.Fprintf(out, "unblocked %s\n", ip)
	} else {
		fmt.Fprintf(out, "%s was not blocked; attempt count reset\n", ip)
	}
	return nil
}
