package survey

import "fmt"

// User-facing texts.
const (
	MsgGreeting        = "Привет! Введите Фамилию и Имя:"
	MsgInvalidName     = "Пожалуйста, введите корректное имя:"
	MsgChooseLocation  = "Выберите квартиру:"
	MsgInvalidLocation = "Пожалуйста, выберите квартиру из списка:"
	MsgDamageQuestion  = "Были ли поломки?"
	MsgSendPhoto       = "Пришлите фото поломки"
	MsgInvalidPhoto    = "Пожалуйста, пришлите фото поломки."
	MsgDescribeDamage  = "Опишите поломку:"
	MsgTextExpected    = "Пожалуйста, ответьте текстом."
	MsgDelivered       = "Спасибо! Ваш отчет отправлен."
	MsgCancelled       = "Операция отменена."
	MsgNothingToCancel = "Нет активного отчета. Отправьте /start, чтобы начать."
	MsgStartHint       = "Отправьте /start, чтобы заполнить отчет."
)

// YesNo is the quick-reply row offered for yes/no prompts.
var YesNo = [][]string{{Affirmative, Negative}}

// DeliveryFailedText is the one-time message shown when the report could not be sent.
func DeliveryFailedText(err error) string {
	return fmt.Sprintf("Ошибка при отправке отчета: %s. Попробуйте позже.", err)
}
