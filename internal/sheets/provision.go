package sheets

import (
	"context"

	"go.uber.org/zap"
)

const (
	RunNamesTitle = "Run Names"
	runNamesRange = "Sheet1!A:Z"
)

// Provision finds or creates the Drive folder and its Run Names spreadsheet.
// A newly created Run Names sheet gets a Section/Run Name header.
func Provision(ctx context.Context, api API, folderName string, logger *zap.Logger) (folderID, runNamesID string, err error) {
	folderID, found, err := api.FindFile(ctx, folderName, MimeFolder, "")
	if err != nil {
		return "", "", err
	}
	if found {
		logger.Info("found drive folder", zap.String("folder_id", folderID))
	} else {
		if folderID, err = api.CreateFile(ctx, folderName, MimeFolder, ""); err != nil {
			return "", "", err
		}
		logger.Info("created drive folder", zap.String("folder_id", folderID))
	}

	runNamesID, found, err = api.FindFile(ctx, RunNamesTitle, MimeSpreadsheet, folderID)
	if err != nil {
		return "", "", err
	}
	if found {
		logger.Info("found run names spreadsheet", zap.String("spreadsheet_id", runNamesID))
		return folderID, runNamesID, nil
	}

	if runNamesID, err = api.CreateFile(ctx, RunNamesTitle, MimeSpreadsheet, folderID); err != nil {
		return "", "", err
	}
	header := [][]interface{}{{"Section", "Run Name"}}
	if err := api.UpdateValues(ctx, runNamesID, "Sheet1!A1:B1", header); err != nil {
		return "", "", err
	}
	logger.Info("created run names spreadsheet", zap.String("spreadsheet_id", runNamesID))
	return folderID, runNamesID, nil
}
