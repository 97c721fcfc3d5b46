package badgeservice

import (
	"context"
	"fmt"
	"io"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	leaderboardSheet = "Leaderboard"
	catalogSheet     = "Catalog"
)

// ExportLeaderboard writes the team leaderboard and the badge catalog to w as
// an XLSX workbook.
func (s *BadgeService) ExportLeaderboard(ctx context.Context, teamID uuid.UUID, w io.Writer) error {
	_, err := withTelemetry(s, ctx, "ExportLeaderboard", teamID.String(), func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		board, err := s.leaderboard(ctx, teamID, MaxLimit)
		if err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		if err := WriteLeaderboardWorkbook(w, board); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// WriteLeaderboardWorkbook renders board and the catalog into an XLSX workbook.
func WriteLeaderboardWorkbook(w io.Writer, board LeaderboardResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"Rank", "Member", "Total", "Timely", "Helper", "Streak"}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range board.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.Rank, e.MemberName, e.TotalBadges, e.TimelyBadges, e.HelperBadges, e.StreakBadges}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if board.Warning != "" {
		cell, err := excelize.CoordinatesToCellName(1, len(board.Entries)+3)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(leaderboardSheet, cell, board.Warning); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(catalogSheet); err != nil {
		return fmt.Errorf("create catalog sheet: %w", err)
	}
	catalogHeader := []any{"Badge", "Discipline", "Title", "Description"}
	if err := f.SetSheetRow(catalogSheet, "A1", &catalogHeader); err != nil {
		return fmt.Errorf("write catalog header: %w", err)
	}
	for i, e := range badgedomain.Entries() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{string(e.Type), string(e.Discipline), e.Title, e.Description}
		if err := f.SetSheetRow(catalogSheet, cell, &row); err != nil {
			return fmt.Errorf("write catalog row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
