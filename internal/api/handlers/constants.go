package handlers

const (
	// User-facing messages, kept identical to what existing clients display
	msgWelcome        = "Excuse APIへようこそ！"
	msgBusy           = "AIが混雑しています。しばらくしてからもう一度お試しください。"
	msgExcuseNotFound = "言い訳が見つかりません"
	msgInvalidID      = "IDが不正です"

	// Saved generations are filed under this category when the request had no cause
	generatedCategory = "生成"

	maxTitleRunes = 40
)
