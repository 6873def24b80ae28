package domain

import "github.com/shopspring/decimal"

type Article struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

type Customer struct {
	ID   int64
	Name string
}
