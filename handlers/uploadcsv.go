package handlers

import (
	"database/sql"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/loader"
)

type CSVResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
	Tables  []string `json:"tables"`
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName derives a table name from an uploaded file name.
func TableName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(base), "_"), "_")
	if name == "" {
		return "uploaded"
	}
	return name
}

// ProcessCSVHandler saves uploaded CSV files under saveDir and loads each
// into its own table. The optional "table" form field names the table when
// a single file is sent.
func ProcessCSVHandler(db *sql.DB, saveDir string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		err := r.ParseMultipartForm(20 << 20)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "bad request: "+err.Error())
			return
		}

		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			writeDetail(w, http.StatusBadRequest, "no files uploaded")
			return
		}
		table := strings.TrimSpace(r.FormValue("table"))
		if table != "" && len(files) > 1 {
			writeDetail(w, http.StatusBadRequest, "table can only be set for a single file")
			return
		}

		if err := os.MkdirAll(saveDir, os.ModePerm); err != nil {
			writeDetail(w, http.StatusInternalServerError, "failed to create upload dir")
			return
		}

		var savedFiles, tables []string
		for _, fileHeader := range files {
			dstPath := filepath.Join(saveDir, filepath.Base(fileHeader.Filename))
			if err := saveUpload(fileHeader, dstPath); err != nil {
				logger.Error("saving upload failed", zap.String("file", dstPath), zap.Error(err))
				writeDetail(w, http.StatusInternalServerError, "failed to save file")
				return
			}
			savedFiles = append(savedFiles, dstPath)

			name := table
			if name == "" {
				name = TableName(fileHeader.Filename)
			}
			n, err := loader.LoadFile(r.Context(), db, name, dstPath)
			if err != nil {
				logger.Error("csv load failed", zap.String("file", dstPath), zap.Error(err))
				writeDetail(w, http.StatusUnprocessableEntity, fileHeader.Filename+": "+err.Error())
				return
			}
			logger.Info("csv loaded", zap.String("table", name), zap.Int("rows", n))
			tables = append(tables, name)
		}

		writeJSON(w, http.StatusOK, CSVResponse{
			Status:  "success",
			Message: "CSV processed & tables loaded",
			Files:   savedFiles,
			Tables:  tables,
		})
	}
}

func saveUpload(fh *multipart.FileHeader, dstPath string) error {
	file, err := fh.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return err
}
