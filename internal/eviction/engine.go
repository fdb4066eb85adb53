// Package eviction считает долг проживающих и отбирает кандидатов на выселение
// по журналу событий.
package eviction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dormitory/internal/clock"
	"dormitory/models"

	"golang.org/x/sync/errgroup"
)

const (
	// Долг дольше этого числа месяцев: повод для выселения
	MaxUnpaidMonths = 6
	// Отсутствие дольше этого срока: повод для выселения
	MaxAbsence = 7 * 24 * time.Hour
	// Возвращение в интервале [00:00, CurfewEndHour) считается нарушением
	CurfewEndHour = 6
)

type Reason string

const (
	ReasonNonPayment    Reason = "NON_PAYMENT"
	ReasonNonResidence  Reason = "NON_RESIDENCE"
	ReasonRuleViolation Reason = "RULE_VIOLATION"
)

type Candidate struct {
	Login  string `json:"login"`
	Reason Reason `json:"reason"`
}

// Events: чтение журнала событий. Пакетные выборки возвращают только
// текущих проживающих.
type Events interface {
	EventsByUser(ctx context.Context, login string, types ...models.EventType) ([]models.Event, error)
	LastEventTimes(ctx context.Context, types ...models.EventType) (map[string]time.Time, error)
	LastEvents(ctx context.Context, types ...models.EventType) ([]models.Event, error)
	ResidentRoomCost(ctx context.Context, login string) (int, error)
}

var (
	paymentEvents = []models.EventType{models.EventPayment, models.EventOccupation}
	inOutEvents   = []models.EventType{models.EventIn, models.EventOut}
)

type Engine struct {
	events Events
	clock  clock.Clock
	loc    *time.Location
}

// New создаёт движок. loc задаёт местное время для правила комендантского часа.
func New(events Events, c clock.Clock, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{events: events, clock: c, loc: loc}
}

// MonthsBetween: число полных календарных месяцев от from до to.
func MonthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	for months > 0 && from.AddDate(0, months, 0).After(to) {
		months--
	}
	return months
}

// LastPaymentTime: время последнего события PAYMENT или OCCUPATION.
func (e *Engine) LastPaymentTime(ctx context.Context, login string) (time.Time, bool, error) {
	events, err := e.events.EventsByUser(ctx, login, paymentEvents...)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load payment events of %s: %w", login, err)
	}
	if len(events) == 0 {
		return time.Time{}, false, nil
	}
	return events[0].Timestamp, true, nil
}

// MonthsElapsed: полные месяцы с последней оплаты или заселения.
// У каждого проживающего есть событие заселения, поэтому его отсутствие: внутренняя ошибка.
func (e *Engine) MonthsElapsed(ctx context.Context, login string) (int, error) {
	last, ok, err := e.LastPaymentTime(ctx, login)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("resident %s has no payment or occupation events", login)
	}
	return MonthsBetween(last, e.clock.Now()), nil
}

// CalculateDebt = стоимость комнаты × полные месяцы без оплаты.
func (e *Engine) CalculateDebt(ctx context.Context, login string) (int, error) {
	months, err := e.MonthsElapsed(ctx, login)
	if err != nil {
		return 0, err
	}
	cost, err := e.events.ResidentRoomCost(ctx, login)
	if err != nil {
		return 0, fmt.Errorf("load room cost of %s: %w", login, err)
	}
	return cost * months, nil
}

func (e *Engine) ToEvictForDebt(ctx context.Context) ([]string, error) {
	last, err := e.events.LastEventTimes(ctx, paymentEvents...)
	if err != nil {
		return nil, fmt.Errorf("load last payment times: %w", err)
	}
	now := e.clock.Now()
	var logins []string
	for login, ts := range last {
		if MonthsBetween(ts, now) > MaxUnpaidMonths {
			logins = append(logins, login)
		}
	}
	sort.Strings(logins)
	return logins, nil
}

func (e *Engine) ToEvictForNonResidence(ctx context.Context) ([]string, error) {
	events, err := e.events.LastEvents(ctx, inOutEvents...)
	if err != nil {
		return nil, fmt.Errorf("load last in/out events: %w", err)
	}
	border := e.clock.Now().Add(-MaxAbsence)
	var logins []string
	for _, ev := range events {
		if ev.Type == models.EventOut && ev.Timestamp.Before(border) {
			logins = append(logins, ev.User)
		}
	}
	sort.Strings(logins)
	return logins, nil
}

// ToEvictForCurfew смотрит только на последнее событие входа/выхода.
func (e *Engine) ToEvictForCurfew(ctx context.Context) ([]string, error) {
	events, err := e.events.LastEvents(ctx, inOutEvents...)
	if err != nil {
		return nil, fmt.Errorf("load last in/out events: %w", err)
	}
	var logins []string
	for _, ev := range events {
		if ev.Timestamp.In(e.loc).Hour() < CurfewEndHour {
			logins = append(logins, ev.User)
		}
	}
	sort.Strings(logins)
	return logins, nil
}

// Candidates объединяет три правила. Проживающий попадает в список один раз,
// с первой сработавшей причиной в порядке: долг, отсутствие, комендантский час.
func (e *Engine) Candidates(ctx context.Context) ([]Candidate, error) {
	var debt, absent, curfew []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		debt, err = e.ToEvictForDebt(gctx)
		return err
	})
	g.Go(func() (err error) {
		absent, err = e.ToEvictForNonResidence(gctx)
		return err
	})
	g.Go(func() (err error) {
		curfew, err = e.ToEvictForCurfew(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Candidate
	add := func(logins []string, reason Reason) {
		for _, login := range logins {
			if _, ok := seen[login]; ok {
				continue
			}
			seen[login] = struct{}{}
			out = append(out, Candidate{Login: login, Reason: reason})
		}
	}
	add(debt, ReasonNonPayment)
	add(absent, ReasonNonResidence)
	add(curfew, ReasonRuleViolation)
	return out, nil
}
