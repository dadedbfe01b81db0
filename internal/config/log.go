package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harbor-io/harbor/internal/models"
)

// daemonLogPrefix distinguishes daemon output logs from the shell's own log.
const daemonLogPrefix = "daemon-"

// CreateDaemonLog creates a log file for one daemon launch and writes its
// header. The returned file is positioned after the header and is meant to
// receive the daemon's stdout and stderr. The caller closes it.
func CreateDaemonLog(binary string, args []string, startedAt time.Time) (*os.File, *models.LogEntry, error) {
	if err := EnsureGlobalLogsDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure logs dir: %w", err)
	}

	logsDir, err := GlobalLogsDir()
	if err != nil {
		return nil, nil, err
	}

	entry := &models.LogEntry{
		LogID:     daemonLogPrefix + startedAt.UTC().Format("2006-01-02T15-04-05.000"),
		Binary:    binary,
		Args:      strings.Join(args, " "),
		StartedAt: startedAt.UTC().Format(time.RFC3339),
	}
	entry.Path = filepath.Join(logsDir, entry.LogID+".log")

	f, err := os.OpenFile(entry.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "binary: %s\n", entry.Binary)
	fmt.Fprintf(w, "args: %s\n", entry.Args)
	fmt.Fprintf(w, "started_at: %s\n", entry.StartedAt)
	fmt.Fprintln(w, "---")
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to write log header: %w", err)
	}

	return f, entry, nil
}

// ListDaemonLogs returns metadata for all daemon logs (newest first).
func ListDaemonLogs() ([]*models.LogEntry, error) {
	logsDir, err := GlobalLogsDir()
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var logs []*models.LogEntry
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, daemonLogPrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		entry, err := parseLogHeader(filepath.Join(logsDir, name))
		if err != nil {
			continue
		}
		logs = append(logs, entry)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].LogID > logs[j].LogID
	})

	return logs, nil
}

// ReadDaemonLog reads a daemon log and returns its metadata and output.
func ReadDaemonLog(logID string) (*models.LogEntry, string, error) {
	logsDir, err := GlobalLogsDir()
	if err != nil {
		return nil, "", err
	}

	path := filepath.Join(logsDir, logID+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("log not found: %w", err)
	}

	entry, body := parseLogContent(string(data))
	if entry == nil {
		return nil, "", fmt.Errorf("invalid log format")
	}
	entry.LogID = logID
	entry.Path = path

	return entry, body, nil
}

func parseLogHeader(path string) (*models.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	entry := &models.LogEntry{
		LogID: strings.TrimSuffix(filepath.Base(path), ".log"),
		Path:  path,
	}
	inHeader := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			if !inHeader {
				inHeader = true
				continue
			}
			break
		}
		if inHeader {
			parseLogHeaderLine(entry, line)
		}
	}

	return entry, scanner.Err()
}

func parseLogContent(content string) (*models.LogEntry, string) {
	lines := strings.Split(content, "\n")
	entry := &models.LogEntry{}
	headerEnd := -1
	inHeader := false

	for i, line := range lines {
		if line == "---" {
			if !inHeader {
				inHeader = true
				continue
			}
			headerEnd = i
			break
		}
		if inHeader {
			parseLogHeaderLine(entry, line)
		}
	}

	if headerEnd < 0 {
		return nil, ""
	}

	return entry, strings.Join(lines[headerEnd+1:], "\n")
}

func parseLogHeaderLine(entry *models.LogEntry, line string) {
	key, val, ok := strings.Cut(line, ": ")
	if !ok {
		return
	}

	switch strings.TrimSpace(key) {
	case "binary":
		entry.Binary = strings.TrimSpace(val)
	case "args":
		entry.Args = strings.TrimSpace(val)
	case "started_at":
		entry.StartedAt = strings.TrimSpace(val)
	}
}
