package config

type WorkerKeyStruct struct {
	NotifyTelegramQueue string
}

var WorkerKey = &WorkerKeyStruct{
	NotifyTelegramQueue: "notify_telegram_queue",
}
