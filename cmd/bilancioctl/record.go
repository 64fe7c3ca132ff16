package main

import (
	"fmt"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/core"
	"bilancio/internal/services"

	"github.com/spf13/cobra"
)

func (a *app) recordCmd() *cobra.Command {
	var (
		typ, owner, amount, label, icon, date, id string
		direct                                    bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an income or expense",
		Long: `Publish a transaction.recorded event for the ingest worker, or insert
the record straight into the configured backend with --direct.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, r, err := buildRecord(typ, owner, amount, label, icon, date, id, time.Now())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var rec *services.Recorder
			if direct {
				bc, err := backend.FromAppConfig(a.cfg)
				if err != nil {
					return err
				}
				res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bc)
				if err != nil {
					return err
				}
				defer res.Close()
				rec = services.NewRecorder(res.Backend, nil, a.logger)
			} else {
				if err := a.cfg.RequireAMQP(); err != nil {
					return fmt.Errorf("%w (use --direct to bypass the broker)", err)
				}
				client, err := amqp.NewClient(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
				if err != nil {
					return err
				}
				defer client.Close()
				rec = services.NewRecorder(nil, client, a.logger)
			}

			stored, err := rec.Record(ctx, t, r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "income or expense")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (UUID)")
	cmd.Flags().StringVar(&amount, "amount", "", "positive amount, e.g. 12.50")
	cmd.Flags().StringVar(&label, "label", "", "source for incomes, category for expenses")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD or RFC 3339 (default: now)")
	cmd.Flags().StringVar(&id, "id", "", "record id (default: random)")
	cmd.Flags().BoolVar(&direct, "direct", false, "insert into the backend instead of publishing")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func buildRecord(typ, owner, amount, label, icon, date, id string, now time.Time) (core.RecordType, core.Record, error) {
	t, err := core.ParseRecordType(typ)
	if err != nil {
		return "", core.Record{}, err
	}
	o, err := core.ParseOwnerID(owner)
	if err != nil {
		return "", core.Record{}, err
	}
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return "", core.Record{}, err
	}
	when, err := parseDate(date, now)
	if err != nil {
		return "", core.Record{}, err
	}
	if id == "" {
		id = core.NewRecordID()
	}
	rec := core.Record{ID: id, OwnerID: o, Amount: amt, Label: label, Icon: icon, Date: when}
	if err := rec.Validate(); err != nil {
		return "", core.Record{}, err
	}
	return t, rec, nil
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.UTC(), nil
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q", core.ErrInvalidDate, s)
}
