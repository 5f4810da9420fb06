package utils

import (
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
)

// Button is either a callback button or, when URL is set, a link button.
type Button struct {
	Text     string
	Callback callbacks.Data
	URL      string
}

func pad(s string) string { return " " + s + " " }

func (b Button) inline() models.InlineKeyboardButton {
	if b.URL != "" {
		return models.InlineKeyboardButton{Text: pad(b.Text), URL: b.URL}
	}
	return models.InlineKeyboardButton{Text: pad(b.Text), CallbackData: b.Callback.Encode()}
}

// BuildInlineKeyboard lays buttons out perRow per line.
func BuildInlineKeyboard(buttons []Button, perRow int) *models.InlineKeyboardMarkup {
	if perRow <= 0 {
		perRow = 1
	}
	rows := make([][]models.InlineKeyboardButton, 0, (len(buttons)+perRow-1)/perRow)
	row := make([]models.InlineKeyboardButton, 0, perRow)
	for i, button := range buttons {
		if i > 0 && i%perRow == 0 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, perRow)
		}
		row = append(row, button.inline())
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// WithRow appends a full-width row of buttons to an existing keyboard.
func WithRow(kb *models.InlineKeyboardMarkup, buttons ...Button) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, b.inline())
	}
	kb.InlineKeyboard = append(kb.InlineKeyboard, row)
	return kb
}
