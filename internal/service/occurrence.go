package service

import (
	"fmt"
	"time"

	"github.com/TechPreacher/ai-birthday-calendar/internal/model"
)

// ── 日期引擎 ────────────────────────────────────────────────
//
// 职责：周期性 (月, 日) 日期的纯函数运算 — 距下次到期天数、
// "明天是否到期" 判定、指定年份的年龄计算。
//
// 设计决策：
//   - 2月29日 在非闰年顺延为 3月1日（time.Date 的归一化行为），
//     规则固定且有显式测试覆盖
//   - 全部运算在 UTC 日期上进行，避免夏令时导致的天数偏差
//   - 引擎假定输入已通过 ValidateMonthDay 校验，对合法输入全定义
// ─────────────────────────────────────────────────────────────

// daysInMonth 各月份允许的最大日；2月 恒为 29（闰年宽容规则）
var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ValidateMonthDay 校验 (月, 日) 是否为合法的周期性日期
// 2月29日 无条件合法，即使并非每一年都会实现该日期
func ValidateMonthDay(month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("月份 %d 超出 1-12 范围", month)
	}
	if day < 1 || day > daysInMonth[month] {
		return fmt.Errorf("%d月 不存在 %d日", month, day)
	}
	return nil
}

// occurrenceInYear 计算 (月, 日) 在指定年份实现的日期
// 非闰年的 (2, 29) 经 time.Date 归一化为 3月1日
func occurrenceInYear(month, day, year int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// dateOnly 取参考时刻的 UTC 日期部分
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntilNextOccurrence 计算从参考日期到 (月, 日) 下次实现的天数
// 当日到期返回 0；当年已过则取下一年的实现日期
func DaysUntilNextOccurrence(month, day int, ref time.Time) int {
	refDate := dateOnly(ref)
	occ := occurrenceInYear(month, day, refDate.Year())
	if occ.Before(refDate) {
		occ = occurrenceInYear(month, day, refDate.Year()+1)
	}
	return int(occ.Sub(refDate) / (24 * time.Hour))
}

// IsTomorrow 判定 (月, 日) 是否在参考日期的次日到期
func IsTomorrow(month, day int, ref time.Time) bool {
	return DaysUntilNextOccurrence(month, day, ref) == 1
}

// AgeInYear 计算指定年份将满的年龄
// 调用方必须先判断出生年份存在；出生年份缺省的记录不得调用本函数
func AgeInYear(birthYear, targetYear int) int {
	return targetYear - birthYear
}

// NextOccurrence 选出距下次到期天数最小的记录
// 并列时按输入顺序取第一条；空切片返回 nil
func NextOccurrence(birthdays []model.Birthday, ref time.Time) *model.Birthday {
	var next *model.Birthday
	minDays := -1
	for i := range birthdays {
		d := DaysUntilNextOccurrence(birthdays[i].Month, birthdays[i].Day, ref)
		if minDays < 0 || d < minDays {
			minDays = d
			next = &birthdays[i]
		}
	}
	return next
}
