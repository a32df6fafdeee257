package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Exam     Exam
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Exam holds the session-engine knobs.
type Exam struct {
	ViolationLimit    int // violations before a student is kicked
	StatusPollSeconds int // client status poll cadence advertised to clients
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("VIOLATION_LIMIT", 3)
	viper.SetDefault("STATUS_POLL_SECONDS", 5)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Exam.ViolationLimit = viper.GetInt("VIOLATION_LIMIT")
	config.Exam.StatusPollSeconds = viper.GetInt("STATUS_POLL_SECONDS")

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
