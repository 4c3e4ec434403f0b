package config

func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

func NewVectorStoreForTest(backend, url, collection string) *VectorStore {
	return &VectorStore{backend: backend, url: url, collection: collection}
}

func NewStorageForTest(backend, bucket, container string) *Storage {
	return &Storage{backend: backend, bucket: bucket, container: container, maxBlobSize: 1 << 20}
}

func NewRealtimeForTest(backend, addr string) *Realtime {
	return &Realtime{backend: backend, addr: addr}
}

func NewNotificationForTest(fcmProjectID, slackWebhookURL string) *Notification {
	return &Notification{fcmProjectID: fcmProjectID, slackWebhookURL: slackWebhookURL}
}

func NewAuthForTest(jwtSecret, issuer, noAuthUID, noAuthRole string) *Auth {
	return &Auth{jwtSecret: jwtSecret, issuer: issuer, noAuthUID: noAuthUID, noAuthRole: noAuthRole}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewAppForTest(path string) *App {
	return &App{path: path}
}
