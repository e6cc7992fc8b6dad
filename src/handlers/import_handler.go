package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/slmyers/portfolio-tracker/src/config"
	"github.com/slmyers/portfolio-tracker/src/logger"
	"github.com/slmyers/portfolio-tracker/src/parsers"
	"github.com/slmyers/portfolio-tracker/src/services"
	"github.com/slmyers/portfolio-tracker/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: service,
	}
}

// HandleImport accepts a multipart upload of an IBKR activity statement
// ("file" field) plus a "portfolio_id" field, parses the statement and
// reconciles it into the portfolio. The full ImportResult is returned so
// the client can surface skips, warnings and failed items.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	portfolioID, err := uuid.Parse(r.FormValue("portfolio_id"))
	if err != nil {
		logger.L.Warn("Invalid portfolio_id in import request", "value", r.FormValue("portfolio_id"), "error", err)
		utils.SendJSONError(w, "Invalid or missing 'portfolio_id' field.", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	// The parser works on a file path, so spool the upload to a temp file.
	statementPath, err := spoolUpload(file)
	if err != nil {
		logger.L.Error("Failed to spool uploaded statement", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "An internal error occurred while handling the file.", http.StatusInternalServerError)
		return
	}
	defer os.Remove(statementPath)

	logger.L.Info("Processing statement import", "portfolioID", portfolioID, "filename", fileHeader.Filename)
	parser := parsers.NewStatementParser()
	if err := parser.Parse(statementPath); err != nil {
		var parseFailure *parsers.ParseFailure
		if errors.As(err, &parseFailure) || errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Statement parsing failed", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing statement file: %v", err), http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error parsing statement", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while parsing the file.", http.StatusInternalServerError)
		}
		return
	}

	result := h.importService.ImportFromStatement(
		r.Context(), portfolioID,
		parser.Trades(), parser.Dividends(), parser.Positions(), parser.ForexBalances(),
		nil,
	)

	status := http.StatusOK
	if !result.Success {
		switch result.ErrorType {
		case services.ErrorTypePortfolioNotFound:
			status = http.StatusNotFound
		default:
			status = http.StatusInternalServerError
		}
	}
	utils.SendJSON(w, result, status)
}

func spoolUpload(file io.Reader) (string, error) {
	tmpFile, err := os.CreateTemp("", "ibkr-statement-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmpFile, file); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tmpFile.Name(), nil
}
