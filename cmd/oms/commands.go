package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ak/oms/internal/app"
	"github.com/ak/oms/internal/domain/duplicates"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	"github.com/ak/oms/internal/infrastructure/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDuplicatesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Group orders that share a customer phone",
		Long: `Reads orders from a JSON file, or from the configured order source when
--file is not given, and prints the duplicate groups as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			var orders []*models.Order
			if file != "" {
				if orders, err = readOrdersFile(file); err != nil {
					return err
				}
			} else {
				rt, err := connect(cmd.Context(), cfg, log, false)
				if err != nil {
					return err
				}
				defer rt.Close()
				if orders, err = rt.source.FetchOrders(cmd.Context(), repositories.TimeWindow{}); err != nil {
					return fmt.Errorf("failed to fetch orders from %s: %w", rt.source.Name(), err)
				}
			}

			normalizer := phone.NewNormalizer(app.PhonePolicy(cfg.Phone))
			return printGroups(cmd.OutOrStdout(), duplicates.Detect(orders, normalizer))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding an array of orders")
	return cmd
}

func readOrdersFile(path string) ([]*models.Order, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var orders []*models.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return orders, nil
}

func printGroups(w io.Writer, groups []models.DuplicateGroup) error {
	if groups == nil {
		groups = []models.DuplicateGroup{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(map[string]any{
		"groups":      groups,
		"group_count": len(groups),
		"order_count": duplicates.OrderCount(groups),
	})
}

func newExportCmd() *cobra.Command {
	var (
		courier string
		out     string
		date    string
		status  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a courier manifest file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			req, err := manifestRequest(courier, status, date, cfg.Location())
			if err != nil {
				return err
			}

			rt, err := connect(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := app.NewServices(cfg, log, rt.repos, rt.source, rt.metrics)
			result, err := writeManifest(cmd.Context(), svc.Exports, req, out)
			if err != nil {
				return err
			}

			log.Info("Manifest written", zap.String("path", out), zap.String("batch_id", result.BatchID))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %s\n", out, result.Rows, result.Encoding)
			return nil
		},
	}

	cmd.Flags().StringVar(&courier, "courier", "", "courier format: tcat or hct")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().StringVar(&date, "date", "", "only orders delivered on this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "order status to export (default confirmed)")
	cmd.MarkFlagRequired("courier")
	cmd.MarkFlagRequired("out")
	return cmd
}

func manifestRequest(courier, status, date string, loc *time.Location) (services.ManifestRequest, error) {
	c, err := export.ParseCourier(courier)
	if err != nil {
		return services.ManifestRequest{}, err
	}
	req := services.ManifestRequest{Courier: c}

	if status != "" {
		if req.Status, err = models.ParseOrderStatus(status); err != nil {
			return services.ManifestRequest{}, err
		}
	}
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return services.ManifestRequest{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
		}
		req.Date = &d
	}
	return req, nil
}

// writeManifest removes the output file again when the export fails
func writeManifest(ctx context.Context, exports services.ExportService, req services.ManifestRequest, path string) (export.Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return export.Result{}, err
	}

	result, err := exports.Manifest(ctx, req, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return export.Result{}, err
	}
	return result, nil
}

func newAdminCmd() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard operators",
	}

	var req services.CreateAdminRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			rt, err := connect(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			admin, err := services.NewAuthService(rt.repos.Admin, nil, log).CreateAdmin(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with id %s\n", admin.Username, admin.Role, admin.ID)
			return nil
		},
	}

	createCmd.Flags().StringVar(&req.Username, "username", "", "login name")
	createCmd.Flags().StringVar(&req.Password, "password", "", "password, at least 8 characters")
	createCmd.Flags().StringVar(&req.Name, "name", "", "display name")
	createCmd.Flags().StringVar(&req.Role, "role", "staff", "admin or staff")
	createCmd.MarkFlagRequired("username")
	createCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}
