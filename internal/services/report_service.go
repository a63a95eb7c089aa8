package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

// MonthlyColumns is the header of the per-user summary files
var MonthlyColumns = []string{
	"user", "month", "pr_opened", "pr_merged", "avg_additions", "avg_deletions",
	"avg_merge_time_h", "approvals_given", "comments_given", "conversations_opened",
	"avg_comments_received_per_pr", "top_repos", "most_active_hours",
}

// OrgColumns is the header of the org-wide file
var OrgColumns = append([]string{"user"}, MonthlyColumns[2:]...)

// listSeparator joins list values inside one cell
const listSeparator = ","

const (
	orgSheet     = "Org-wide"
	monthlySheet = "Monthly"
)

// ReportService renders statistics to files in one output directory
type ReportService struct {
	outputDir string
	org       string
	writeXLSX bool
}

func NewReportService(outputDir, org string, writeXLSX bool) *ReportService {
	if outputDir == "" {
		outputDir = "."
	}
	return &ReportService{outputDir: outputDir, org: org, writeXLSX: writeXLSX}
}

// UserReportPath is <user>_<org>_summary.csv
func (s *ReportService) UserReportPath(user string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s_summary.csv", safeName(user), safeName(s.org)))
}

// OrgReportPath is <org>_orgwide_report.csv
func (s *ReportService) OrgReportPath() string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_orgwide_report.csv", safeName(s.org)))
}

// WorkbookPath is <org>_activity_report.xlsx
func (s *ReportService) WorkbookPath() string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_activity_report.xlsx", safeName(s.org)))
}

// Write renders every report in memory, writes them to temporary files and only
// then renames them into place. On error no report file of this run is left behind.
func (s *ReportService) Write(rows []*models.MonthlyUserStat, summaries []*models.OrgUserSummary) ([]string, error) {
	files := make(map[string][]byte)

	// logins are case-insensitive, one file per user whatever the casing of each row
	byUser := make(map[string][]*models.MonthlyUserStat)
	var users []string
	for _, row := range rows {
		key := strings.ToLower(row.User)
		if _, ok := byUser[key]; !ok {
			users = append(users, key)
		}
		byUser[key] = append(byUser[key], row)
	}
	sort.Strings(users)

	for _, user := range users {
		path := s.UserReportPath(byUser[user][0].User)
		for _, row := range byUser[user] {
			if err := row.Validate(); err != nil {
				return nil, &WriteError{Path: path, Err: fmt.Errorf("invalid row for %s %s: %w", row.User, row.Month, err)}
			}
		}
		data, err := renderCSV(MonthlyColumns, monthlyRecords(byUser[user]))
		if err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
		files[path] = data
	}

	orgPath := s.OrgReportPath()
	for _, summary := range summaries {
		if err := summary.Validate(); err != nil {
			return nil, &WriteError{Path: orgPath, Err: fmt.Errorf("invalid summary for %s: %w", summary.User, err)}
		}
	}
	data, err := renderCSV(OrgColumns, orgRecords(summaries))
	if err != nil {
		return nil, &WriteError{Path: orgPath, Err: err}
	}
	files[orgPath] = data

	if s.writeXLSX {
		path := s.WorkbookPath()
		data, err := renderWorkbook(rows, summaries)
		if err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
		files[path] = data
	}

	return s.commit(files)
}

// commit writes all files to temporaries and renames them once every write succeeded.
// A failed rename removes the files already moved into place.
func (s *ReportService) commit(files map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, &WriteError{Path: s.outputDir, Err: err}
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	temps := make(map[string]string, len(paths))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}

	for _, path := range paths {
		tmp, err := writeTemp(path, files[path])
		if err != nil {
			cleanup()
			return nil, &WriteError{Path: path, Err: err}
		}
		temps[path] = tmp
	}

	var renamed []string
	for _, path := range paths {
		if err := os.Rename(temps[path], path); err != nil {
			cleanup()
			for _, done := range renamed {
				os.Remove(done)
			}
			return nil, &WriteError{Path: path, Err: err}
		}
		delete(temps, path)
		renamed = append(renamed, path)
	}

	for _, path := range paths {
		logger.WithField("path", path).Debugf("Report file written")
	}

	return paths, nil
}

func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func renderCSV(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func monthlyRecords(rows []*models.MonthlyUserStat) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, append([]string{row.User, row.Month}, statCells(row.ActivityStats)...))
	}
	return records
}

func orgRecords(summaries []*models.OrgUserSummary) [][]string {
	records := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		records = append(records, append([]string{summary.User}, statCells(summary.ActivityStats)...))
	}
	return records
}

// statCells renders everything after the key columns
func statCells(s models.ActivityStats) []string {
	return []string{
		strconv.Itoa(s.PROpened),
		strconv.Itoa(s.PRMerged),
		formatAverage(s.AvgAdditions, 1),
		formatAverage(s.AvgDeletions, 1),
		formatAverage(s.AvgMergeTimeHours, 2),
		strconv.Itoa(s.ApprovalsGiven),
		strconv.Itoa(s.CommentsGiven),
		strconv.Itoa(s.ConversationsOpened),
		formatAverage(s.AvgCommentsReceivedPerPR, 2),
		strings.Join(s.TopRepos, listSeparator),
		joinHours(s.MostActiveHours),
	}
}

// formatAverage renders nil as an empty cell
func formatAverage(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func joinHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, listSeparator)
}

func renderWorkbook(rows []*models.MonthlyUserStat, summaries []*models.OrgUserSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orgSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return nil, err
	}

	if err := writeSheet(f, orgSheet, OrgColumns, orgRecords(summaries)); err != nil {
		return nil, err
	}
	if err := writeSheet(f, monthlySheet, MonthlyColumns, monthlyRecords(rows)); err != nil {
		return nil, err
	}

	index, err := f.GetSheetIndex(orgSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, records [][]string) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, record := range records {
		if err := setRow(f, sheet, i+2, record); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes numeric-looking cells as numbers so spreadsheets can sort them
func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		if n, err := strconv.ParseFloat(v, 64); err == nil && !strings.Contains(v, listSeparator) {
			cells[i] = n
		} else {
			cells[i] = v
		}
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// safeName keeps file names portable
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
