package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
	"github.com/TechPreacher/ai-birthday-calendar/internal/repository"
)

// ExportService 导出业务接口
//
// 设计说明：
//   - Excel 导出为平铺清单，含距下次生日天数与将满年龄
//   - iCalendar 导出每条记录一个 VEVENT，DTSTART 取下次实现日期，
//     FREQ=YEARLY 让日历客户端自行展开后续年份
//   - 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportXLSX 导出生日清单为 Excel
	ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportICS 导出生日日历为 iCalendar
	ExportICS(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ────────────────────── ExportXLSX ──────────────────────

// xlsxHeaders 导出列头
var xlsxHeaders = []string{"Name", "Month", "Day", "Birth Year", "Turning", "Days Until", "Contact Type", "Note"}

func (s *exportService) ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error) {
	birthdays, err := s.repo.Birthday.List(ctx)
	if err != nil {
		s.logger.Error("查询生日列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(birthdays) == 0 {
		return nil, "", ErrNoBirthdays
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Birthdays"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	now := time.Now()
	for row, b := range birthdays {
		daysUntil := DaysUntilNextOccurrence(b.Month, b.Day, now)

		values := []interface{}{b.Name, b.Month, b.Day, nil, nil, daysUntil, string(b.ContactType), b.Note}
		if b.BirthYear != nil {
			values[3] = *b.BirthYear
			values[4] = AgeInYear(*b.BirthYear, now.AddDate(0, 0, daysUntil).Year())
		}

		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 文件失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("birthdays_%s.xlsx", now.Format("2006-01-02"))
	return buf, filename, nil
}

// ────────────────────── ExportICS ──────────────────────

func (s *exportService) ExportICS(ctx context.Context) (*bytes.Buffer, string, error) {
	birthdays, err := s.repo.Birthday.List(ctx)
	if err != nil {
		s.logger.Error("查询生日列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(birthdays) == 0 {
		return nil, "", ErrNoBirthdays
	}

	now := time.Now()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Birthday Tracker//EN")

	for i := range birthdays {
		addBirthdayEvent(cal, &birthdays[i], now)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("birthdays_%s.ics", now.Format("2006-01-02"))
	return buf, filename, nil
}

// addBirthdayEvent 追加单条生日的全天年度重复事件
func addBirthdayEvent(cal *ics.Calendar, b *model.Birthday, now time.Time) {
	daysUntil := DaysUntilNextOccurrence(b.Month, b.Day, now)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysUntil)

	e := cal.AddEvent(fmt.Sprintf("%s@birthday-tracker", b.BirthdayID))
	e.SetCreatedTime(now)
	e.SetDtStampTime(now)
	e.SetAllDayStartAt(start)
	e.SetAllDayEndAt(start.AddDate(0, 0, 1))
	e.AddRrule("FREQ=YEARLY")

	summary := fmt.Sprintf("🎂 %s", b.Name)
	if b.BirthYear != nil {
		summary = fmt.Sprintf("🎂 %s (*%d)", b.Name, *b.BirthYear)
	}
	e.SetSummary(summary)
	if b.Note != "" {
		e.SetDescription(b.Note)
	}
}
