// Package domain provides core domain types shared by every module.
package domain

// Currency represents a currency code
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyBTC Currency = "BTC"
)

// FiatCurrency is the single fiat currency supported for buying and selling
const FiatCurrency = CurrencyINR

// CryptoCurrency is the single crypto currency traded against FiatCurrency
const CryptoCurrency = CurrencyBTC

// Medium is the mechanism used for one leg of a trade
type Medium string

const (
	MediumBlockchain Medium = "blockchain"
	MediumBank       Medium = "bank"
)

// ProviderName identifies this exchange to the identity delegate
const ProviderName = "unocoin"
