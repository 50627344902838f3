package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/matrixise/guild-dashboard/internal/scheduler"
	"github.com/matrixise/guild-dashboard/internal/units"
)

// Config represents the application configuration
type Config struct {
	RPCUrl         string       `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls        []string     `mapstructure:"rpc_urls" validate:"required,min=1,dive,url"`
	GraphURL       string       `mapstructure:"graph_url" validate:"required,url"`
	GraphTimeout   string       `mapstructure:"graph_timeout" validate:"omitempty,duration"`
	GuildAddress   string       `mapstructure:"guild_address" validate:"required,eth_addr"`
	UserAddress    string       `mapstructure:"user_address" validate:"omitempty,eth_addr"`
	Token          TokenConfig  `mapstructure:"token"`
	Locale         LocaleConfig `mapstructure:"locale"`
	Interval       string       `mapstructure:"interval" validate:"omitempty,schedule"`
	LogLevel       string       `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort       int          `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	Timezone       string       `mapstructure:"timezone" validate:"omitempty,timezone"`
	ReceiptTimeout string       `mapstructure:"receipt_timeout" validate:"omitempty,duration"`
}

// TokenConfig describes the guild's deposit token
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol" validate:"required,min=1,max=20"`
	Address  string `mapstructure:"address" validate:"required,eth_addr"`
	Decimals uint8  `mapstructure:"decimals" validate:"max=77"`
}

// LocaleConfig controls fiat formatting
type LocaleConfig struct {
	Symbol             string `mapstructure:"symbol" validate:"max=8"`
	ThousandsSeparator string `mapstructure:"thousands_separator" validate:"max=4"`
	DecimalSeparator   string `mapstructure:"decimal_separator" validate:"required_with=Symbol,max=4"`
}

// Normalize folds the single rpc_url into rpc_urls
func (c *Config) Normalize() error {
	if len(c.RPCUrls) == 0 && c.RPCUrl != "" {
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""

	if len(c.RPCUrls) == 0 {
		return fmt.Errorf("rpc_url or rpc_urls is required")
	}
	return nil
}

// GetTimezone returns the configured location, UTC when unset or invalid
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsCronExpression reports whether Interval is a cron expression
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// GraphTimeoutDuration returns the data source request timeout
func (c *Config) GraphTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.GraphTimeout)
	if err != nil {
		return 0
	}
	return d
}

// ReceiptTimeoutDuration returns how long to wait for an approve receipt
func (c *Config) ReceiptTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ReceiptTimeout)
	if err != nil {
		return 0
	}
	return d
}

// FiatLocale returns the fiat formatting settings
func (c *Config) FiatLocale() units.Locale {
	if c.Locale == (LocaleConfig{}) {
		return units.DefaultLocale
	}
	return units.Locale{
		Symbol:       c.Locale.Symbol,
		ThousandsSep: c.Locale.ThousandsSeparator,
		DecimalSep:   c.Locale.DecimalSeparator,
	}
}

// GuildAddr returns the spender address of allowance requests
func (c *Config) GuildAddr() common.Address {
	return common.HexToAddress(c.GuildAddress)
}

// UserAddr returns the session user address, if configured
func (c *Config) UserAddr() (common.Address, bool) {
	if c.UserAddress == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.UserAddress), true
}

// TokenAddr returns the deposit token address
func (c *Config) TokenAddr() common.Address {
	return common.HexToAddress(c.Token.Address)
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates Go duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// scheduleValidator accepts clock-aligned durations and cron expressions
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

// timezoneValidator validates IANA location names
func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("timezone", timezoneValidator)
	return validate
}
