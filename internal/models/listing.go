package models

import (
	"net/url"
	"strconv"
	"time"
)

// ListQuery holds the paging and filter parameters accepted by listing endpoints.
type ListQuery struct {
	Page     int
	Limit    int
	Q        string
	Status   string
	Type     string
	DateFrom *time.Time
	DateTo   *time.Time
	Category string
	Method   string
}

func (q ListQuery) Values() url.Values {
	v := url.Values{}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("q", q.Q)
	set("status", q.Status)
	set("type", q.Type)
	set("category", q.Category)
	set("method", q.Method)
	if q.DateFrom != nil {
		v.Set("dateFrom", q.DateFrom.Format("2006-01-02"))
	}
	if q.DateTo != nil {
		v.Set("dateTo", q.DateTo.Format("2006-01-02"))
	}
	return v
}

type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// Pages returns the number of pages for the reported total.
func (m PageMeta) Pages() int {
	if m.Limit <= 0 {
		return 0
	}
	return (m.Total + m.Limit - 1) / m.Limit
}

type Application struct {
	ID            string    `json:"id"`
	ScholarshipID string    `json:"scholarshipId"`
	ScholarID     string    `json:"scholarId"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Transaction struct {
	ID            string    `json:"id"`
	Reference     string    `json:"reference"`
	ScholarshipID string    `json:"scholarshipId"`
	Amount        int       `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
}
