package config

// AuthConfig пути эндпоинтов, создающих и уничтожающих учетные данные.
type AuthConfig struct {
	LoginPath    string `yaml:"login_path" env:"REVORNIX_AUTH_LOGIN_PATH" env-default:"/user/login"`
	RegisterPath string `yaml:"register_path" env:"REVORNIX_AUTH_REGISTER_PATH" env-default:"/user/create"`
	RefreshPath  string `yaml:"refresh_path" env:"REVORNIX_AUTH_REFRESH_PATH" env-default:"/user/token/update"`
	LogoutPath   string `yaml:"logout_path" env:"REVORNIX_AUTH_LOGOUT_PATH" env-default:"/user/logout"`
}
