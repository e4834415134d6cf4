// Package output provides output formatting functionality for client commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// Format 输出格式
type Format string

const (
	// FormatJSON JSON格式（默认）
	FormatJSON Format = "json"
	// FormatPretty 美化JSON格式
	FormatPretty Format = "pretty"
	// FormatTable 表格格式
	FormatTable Format = "table"
	// FormatText 纯文本格式
	FormatText Format = "text"
)

// ParseFormat 解析输出格式
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatPretty, FormatTable, FormatText:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json|pretty|table|text)", s)
	}
}

// Formatter 输出格式化器
type Formatter struct {
	format    Format
	writer    io.Writer // 数据输出（JSON/表格等）
	logWriter io.Writer // 日志输出（Info/Success/Error等）
	silent    bool
}

// NewFormatter 创建格式化器
func NewFormatter(format Format, writer io.Writer) *Formatter {
	if writer == nil {
		writer = os.Stdout
	}

	return &Formatter{
		format:    format,
		writer:    writer,    // 数据输出到 stdout
		logWriter: os.Stderr, // 日志输出到 stderr（避免污染 JSON）
		silent:    false,
	}
}

// SetLogWriter 设置日志输出目标（默认 stderr）
func (f *Formatter) SetLogWriter(writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	f.logWriter = writer
}

// Format 当前输出格式
func (f *Formatter) Format() Format {
	return f.format
}

// SetSilent 设置静默模式
func (f *Formatter) SetSilent(silent bool) {
	f.silent = silent
}

// Print 打印输出
func (f *Formatter) Print(data interface{}) error {
	if f.silent {
		return nil
	}

	switch f.format {
	case FormatJSON:
		return f.printJSON(data, false)
	case FormatPretty:
		return f.printJSON(data, true)
	case FormatTable:
		return f.printTable(data)
	case FormatText:
		return f.printText(data)
	default:
		return f.printJSON(data, false)
	}
}

// printJSON 打印JSON格式
func (f *Formatter) printJSON(data interface{}, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintln(f.writer, string(output)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// printTable 打印表格格式
func (f *Formatter) printTable(data interface{}) error {
	var rows [][]string
	switch v := data.(type) {
	case map[string]interface{}:
		rows = mapRows(v)
	case []map[string]interface{}:
		rows = mapSliceRows(v)
	case []interface{}:
		rows = [][]string{{"#", "Value"}}
		for i, value := range v {
			rows = append(rows, []string{fmt.Sprintf("%d", i), formatValue(value)})
		}
	default:
		// 降级到JSON
		return f.printJSON(data, true)
	}
	if len(rows) <= 1 {
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(f.writer).WithData(rows).Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

// mapRows 两列: Key | Value，按键排序
func mapRows(data map[string]interface{}) [][]string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]string{{"Key", "Value"}}
	for _, k := range keys {
		rows = append(rows, []string{k, formatValue(data[k])})
	}
	return rows
}

// mapSliceRows 每个 map 一行，列为所有键的并集
func mapSliceRows(data []map[string]interface{}) [][]string {
	if len(data) == 0 {
		return nil
	}
	columns := extractColumns(data)
	rows := [][]string{columns}
	for _, row := range data {
		values := make([]string, len(columns))
		for i, col := range columns {
			if val, ok := row[col]; ok {
				values[i] = formatValue(val)
			} else {
				values[i] = "-"
			}
		}
		rows = append(rows, values)
	}
	return rows
}

// printText 打印纯文本格式
func (f *Formatter) printText(data interface{}) error {
	if _, err := fmt.Fprintf(f.writer, "%v\n", data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// PrintSuccess 打印成功消息（输出到 stderr，避免污染 JSON）
func (f *Formatter) PrintSuccess(message string) {
	if f.silent {
		return
	}
	pterm.Success.WithWriter(f.logWriter).Println(message)
}

// PrintError 打印错误消息（输出到 stderr，避免污染 JSON）
func (f *Formatter) PrintError(err error) {
	pterm.Error.WithWriter(f.logWriter).Println(err.Error())
}

// PrintWarning 打印警告消息（输出到 stderr，避免污染 JSON）
func (f *Formatter) PrintWarning(message string) {
	if f.silent {
		return
	}
	pterm.Warning.WithWriter(f.logWriter).Println(message)
}

// PrintInfo 打印信息消息（输出到 stderr，避免污染 JSON）
func (f *Formatter) PrintInfo(message string) {
	if f.silent {
		return
	}
	pterm.Info.WithWriter(f.logWriter).Println(message)
}

// ===== 辅助函数 =====

// formatValue 格式化值
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int, int64, uint, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.Format(time.RFC3339)
	case nil:
		return "-"
	case fmt.Stringer:
		return v.String()
	default:
		// 尝试JSON序列化
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// extractColumns 提取所有列
func extractColumns(data []map[string]interface{}) []string {
	columnSet := make(map[string]bool)
	columns := make([]string, 0)

	// 收集所有列名，保持稳定顺序
	for _, row := range data {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if !columnSet[key] {
				columnSet[key] = true
				columns = append(columns, key)
			}
		}
	}

	return columns
}

// ErrorOutput 错误输出结构
type ErrorOutput struct {
	Error struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// NewErrorOutput 创建错误输出
func NewErrorOutput(code string, message string, details interface{}) *ErrorOutput {
	output := &ErrorOutput{}
	output.Error.Code = code
	output.Error.Message = message
	output.Error.Details = details
	return output
}

// SuccessOutput 成功输出结构
type SuccessOutput struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewSuccessOutput 创建成功输出
func NewSuccessOutput(data interface{}, message string) *SuccessOutput {
	return &SuccessOutput{
		Success: true,
		Data:    data,
		Message: message,
	}
}
