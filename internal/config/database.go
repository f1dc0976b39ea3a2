package config

// Database connection configuration, populated by LoadConfig.
var (
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

func loadDatabaseConfig() error {
	var err error

	DBHost, err = getEnv("VCE_DB_HOST")
	if err != nil {
		return err
	}

	port, err := getEnvAsInt64("VCE_DB_PORT")
	if err != nil {
		return err
	}
	DBPort = int(port)

	DBUser, err = getEnv("VCE_DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("VCE_DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("VCE_DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode, err = getEnv("VCE_DB_SSLMODE")
	if err != nil {
		return err
	}

	return nil
}
