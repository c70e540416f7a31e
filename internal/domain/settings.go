package domain

// Settings is the panel settings document served by GET/PUT /settings.
type Settings struct {
	FRP      FRPSettings      `json:"frp"`
	Telegram TelegramSettings `json:"telegram"`
	Tunnel   *TunnelSettings  `json:"tunnel,omitempty"`
}

// FRPSettings configures the FRP communication channel.
type FRPSettings struct {
	Enabled bool    `json:"enabled"`
	Port    int     `json:"port"`
	Token   *string `json:"token,omitempty"`
}

// TelegramSettings configures the Telegram bot.
type TelegramSettings struct {
	Enabled            bool     `json:"enabled"`
	BotToken           *string  `json:"bot_token,omitempty"`
	AdminIDs           []string `json:"admin_ids"`
	BackupEnabled      *bool    `json:"backup_enabled,omitempty"`
	BackupInterval     *int     `json:"backup_interval,omitempty"`
	BackupIntervalUnit *string  `json:"backup_interval_unit,omitempty"`
}

// TunnelSettings configures automatic tunnel reapply.
type TunnelSettings struct {
	AutoReapplyEnabled      *bool   `json:"auto_reapply_enabled,omitempty"`
	AutoReapplyInterval     *int    `json:"auto_reapply_interval,omitempty"`
	AutoReapplyIntervalUnit *string `json:"auto_reapply_interval_unit,omitempty"`
}
