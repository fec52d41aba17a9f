package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

// excelSheetName — имя листа с сообщениями в сгенерированной книге.
const excelSheetName = "Messages"

// ExcelExporter записывает коллекцию сообщений в книгу XLSX.
type ExcelExporter struct{}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Write записывает сообщения в w как книгу XLSX: по строке на сообщение,
// с колонками отправителя, даты, времени, содержимого и числа вложений.
func (e *ExcelExporter) Write(w io.Writer, messages []domain.EnrichedMessage) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(excelSheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{"ID", "Sender", "Date", "Time", "Content", "Attachments", "Reactions"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(excelSheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, msg := range messages {
		row := i + 2
		f.SetCellValue(excelSheetName, fmt.Sprintf("A%d", row), msg.ID)
		f.SetCellValue(excelSheetName, fmt.Sprintf("B%d", row), msg.SenderName)
		f.SetCellValue(excelSheetName, fmt.Sprintf("C%d", row), msg.DisplayDate)
		f.SetCellValue(excelSheetName, fmt.Sprintf("D%d", row), msg.DisplayTime)
		f.SetCellValue(excelSheetName, fmt.Sprintf("E%d", row), msg.Content)
		f.SetCellValue(excelSheetName, fmt.Sprintf("F%d", row), len(msg.Photos)+len(msg.Videos)+len(msg.AudioFiles)+len(msg.Files)+len(msg.Gifs))
		f.SetCellValue(excelSheetName, fmt.Sprintf("G%d", row), len(msg.Reactions))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel file: %w", err)
	}
	return nil
}
