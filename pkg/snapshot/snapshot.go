package snapshot

import (
	"context"
	"io"
	"os"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

type DepositorLister interface {
	ListDepositors(ctx context.Context) ([]*rewardLedger.DepositorSummary, error)
}

type DepositorRow struct {
	Principal        string `csv:"principal"`
	Balance          string `csv:"balance"`
	RewardDebt       string `csv:"reward_debt"`
	PendingReward    string `csv:"pending_reward"`
	AmountToWithdraw string `csv:"amount_to_withdraw"`
	ShareOfPool      string `csv:"share_of_pool"`
}

type ExportOptions struct {
	// ShowProgress renders a progress bar on ProgressWriter, or stderr when unset.
	ShowProgress   bool
	ProgressWriter io.Writer
}

// ExportDepositors writes every active depositor as CSV and returns the number of rows written.
func ExportDepositors(ctx context.Context, lister DepositorLister, w io.Writer, opts *ExportOptions) (int, error) {
	if opts == nil {
		opts = &ExportOptions{}
	}
	summaries, err := lister.ListDepositors(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list depositors")
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		pw := opts.ProgressWriter
		if pw == nil {
			pw = os.Stderr
		}
		bar = progressbar.NewOptions(len(summaries),
			progressbar.OptionSetWriter(pw),
			progressbar.OptionSetDescription("exporting depositors"),
			progressbar.OptionShowCount(),
		)
	}

	rows := make([]*DepositorRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, &DepositorRow{
			Principal:        s.Principal,
			Balance:          s.Balance.String(),
			RewardDebt:       s.RewardDebt.String(),
			PendingReward:    s.PendingReward.String(),
			AmountToWithdraw: s.AmountToWithdraw.String(),
			ShareOfPool:      s.ShareOfPool.String(),
		})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, errors.Wrap(err, "failed to write depositors csv")
	}
	return len(rows), nil
}

// ExportDepositorsToFile is ExportDepositors writing to path, truncating any existing file.
func ExportDepositorsToFile(ctx context.Context, lister DepositorLister, path string, opts *ExportOptions) (int, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return ExportDepositors(ctx, lister, file, opts)
}

// ReadDepositors parses a file produced by ExportDepositors.
func ReadDepositors(r io.Reader) ([]*DepositorRow, error) {
	rows := make([]*DepositorRow, 0)
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to read depositors csv")
	}
	return rows, nil
}
