package s3

// Config controls S3 client construction. Values come from the
// environment via config.Load. Endpoint and ForcePathStyle exist for
// S3-compatible services such as MinIO.
type Config struct {
	Region         string `env:"S3_REGION,required"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
}
