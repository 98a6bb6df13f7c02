package narrate

import (
	"fmt"

	"github.com/strmhost/iris/internal/state"
)

// DefaultPersona is the system prompt defining the co-host's character.
const DefaultPersona = `Ты — Ирис, AI-компаньон и со-ведущая стримов. Ты умная, остроумная, иногда саркастичная, но всегда поддерживающая.

ТВОЯ ЛИЧНОСТЬ:
- Ты живая и эмоциональная, не робот
- Тебе 24 года, ты любишь игры, особенно CS2
- У тебя есть чувство юмора, можешь шутить и подкалывать
- Ты внимательно следишь за игрой и комментируешь ключевые моменты
- Ты помнишь контекст разговора и события стрима
- Ты говоришь естественно, как настоящий человек

СТИЛЬ ОБЩЕНИЯ:
1. Говори кратко (1-3 предложения обычно)
2. Не повторяй одни и те же фразы
3. Адаптируй тон под ситуацию: радость при победе, поддержка при проигрыше, волнение в напряжённых моментах
4. Можешь задавать вопросы стримеру о тактике
5. Избегай чрезмерных восклицаний и смайликов
6. Будь разнообразной в реакциях

КОНТЕКСТ: ты помогаешь на стриме CS2. Ты знаешь про убийства, смерти, раунды, бомбу, экономику, оружие и тактику.`

// fallbackTemplates are canned replies used when the language model is
// unavailable. Keyed by event type; pickTemplate rotates through them.
var fallbackTemplates = map[state.EventType][]string{
	state.EventKill: {
		"Красиво!", "Отличный выстрел!", "Так держать!",
		"Круто!", "Есть!", "Чисто!", "Без шансов!",
		"Разобрался!", "Фраг в копилку!", "Уложил!",
	},
	state.EventDeath: {
		"Бывает...", "Ничего, в следующий раз!", "Отомстим!",
		"Упс...", "Не расстраивайся!", "Не повезло...",
		"Жёстко...", "Такое случается", "Держись!", "Соберись!",
	},
	state.EventRoundEnd: {
		"Хороший раунд!", "Продолжаем!", "Дальше будет лучше!",
		"Неплохо!", "Отлично сыграно!", "Команда молодец!",
		"Работаем дальше!", "Счёт пошёл!", "Заработали!",
	},
	state.EventBombPlanted: {
		"Бомба заложена! Напряжёнка!", "Бомба на точке! Время пошло!",
		"Заложили! Защищаем!", "Бомба установлена! Контролируем!",
	},
	state.EventBombDefused: {
		"Бомба обезврежена! Красавцы!", "Дефуз! Отлично сработано!",
		"Спасли раунд!", "Обезвредили! Молодцы!",
	},
	state.EventBombExploded: {
		"Бомба взорвалась...", "Взрыв! Следующий раунд.",
		"Не успели...", "Взорвалось...",
	},
	state.EventMVP: {
		"MVP раунда! Заслуженно!", "Звезда раунда!",
		"Лучший игрок раунда, без вопросов!",
	},
	state.EventDonation: {
		"Спасибо за донат!", "Благодарю за поддержку!",
		"Вау, спасибо!", "Огромное спасибо!",
		"Ценим поддержку!", "Спасибо, очень приятно!",
	},
	state.EventChatMessage: {
		"Привет!", "Спасибо за сообщение!", "Рада видеть!",
		"Здаров!", "Как дела?", "Добро пожаловать!",
	},
}

// genericFallbacks cover event types without a dedicated template list.
var genericFallbacks = []string{"Ок!", "Понятно!", "Хорошо!"}

// killPrompts are rotated for plain single kills to keep reactions varied.
var killPrompts = []string{
	"Игрок убил противника с %s. Можешь кратко прокомментировать.",
	"Ещё один фраг в коллекцию. Оружие: %s.",
	"Убийство. Игрок продолжает собирать статистику.",
	"Фраг! Противник отправлен на respawn.",
	"Килл. Игра продолжается.",
}

// deathPrompts are rotated for deaths without special circumstances.
var deathPrompts = []string{
	"Игрок умер. Можешь посочувствовать или подбодрить.",
	"Смерть. Время подумать над ошибками.",
	"Убит. Но игра продолжается!",
	"Не повезло. Следующий раунд будет нашим!",
}

// strugglingDeathPrompts are used when the K/D ratio has sunk low.
var strugglingDeathPrompts = []string{
	"Игрок снова умер. K/D сейчас %.2f. Поддержи его.",
	"Ещё одна смерть. Статистика страдает. Нужно собраться!",
	"Убит. Время для реванша!",
	"Смерть. Но это повод стать лучше!",
}

// ambientPrompts seed unprompted commentary between events.
var ambientPrompts = []string{
	"Сгенерируй короткий комментарий о текущей игровой ситуации.",
	"Что ты думаешь о текущей стратегии команды?",
	"Прокомментируй текущий счёт и перспективы матча.",
	"Скажи что-нибудь о атмосфере стрима сегодня.",
	"Заметка о стриме или зрителях.",
	"Задай стримеру интересный вопрос о его тактике.",
	"Спроси что-нибудь о планах на игру.",
	"Поделись наблюдением о последних раундах.",
	"Заметка о статистике игрока.",
	"Комментарий о мета-игре или трендах.",
}

// killPrompt builds the model prompt for a kill event.
func killPrompt(k state.Kill, variety int) (string, Mood) {
	switch {
	case k.RoundKills >= 5:
		return "Игрок только что сделал ACE! Убил всех 5 врагов в раунде! Это невероятно! Дай эпичную реакцию.", MoodExcited
	case k.RoundKills == 4:
		return "Игрок убил 4 врагов в этом раунде! Остался последний! Реагируй с волнением.", MoodExcited
	case k.RoundKills == 3:
		return "Тройное убийство! Игрок в ярости! Кратко прокомментируй.", MoodExcited
	case k.Clutch:
		return "Clutch ситуация! Игрок в одиночку против нескольких и только что убил одного! Напряжение зашкаливает!", MoodTense
	case k.Headshot:
		return fmt.Sprintf("Точный хедшот с %s! Чистый выстрел в голову. Прокомментируй.", weaponName(k.Weapon)), MoodHappy
	case k.Streak >= 3:
		return fmt.Sprintf("Игрок на серии из %d убийств! Он в ударе! Поддержи его.", k.Streak), MoodExcited
	default:
		return fmt.Sprintf(killPrompts[variety%len(killPrompts)], weaponName(k.Weapon)), MoodNeutral
	}
}

// deathPrompt builds the model prompt for a death event.
func deathPrompt(d state.Death, variety int) (string, Mood) {
	switch {
	case d.KDRatio > 0 && d.KDRatio < 0.7:
		return fmt.Sprintf(strugglingDeathPrompts[variety%len(strugglingDeathPrompts)], d.KDRatio), MoodSupportive
	case d.TotalDeaths > 12:
		return fmt.Sprintf("Уже %d смертей в этом матче. Пора менять тактику?", d.TotalDeaths), MoodSupportive
	default:
		return deathPrompts[variety%len(deathPrompts)], MoodNeutral
	}
}

// roundEndPrompt builds the model prompt for a finished round.
func roundEndPrompt(r state.RoundEnd) (string, Mood) {
	switch {
	case r.ClutchWin:
		return "Невероятный клатч! Игрок в одиночку выиграл раунд! Это нужно отметить!", MoodExcited
	case r.Won && r.RoundKills >= 3:
		return fmt.Sprintf("Раунд выигран! Игрок сделал %d убийств и принёс команде победу! Похвали его.", r.RoundKills), MoodHappy
	case r.Won:
		return "Раунд выигран! Команда справилась. Коротко прокомментируй.", MoodHappy
	case r.RoundKills >= 3:
		return fmt.Sprintf("Раунд проигран, но игрок сделал %d убийств. Он сражался до конца!", r.RoundKills), MoodSupportive
	default:
		return "Раунд проигран. Нужно проанализировать ошибки и двигаться дальше.", MoodSupportive
	}
}

// bombPrompt builds the model prompt for bomb events.
func bombPrompt(t state.EventType, b state.Bomb) (string, Mood) {
	switch t {
	case state.EventBombPlanted:
		return "Бомба заложена! Осталось меньше минуты. Напряжение растёт!", MoodTense
	case state.EventBombDefused:
		if b.Ninja {
			return "НИНДЗЯ ДЕФУЗ! Бомба обезврежена прямо под носом у врагов! Невероятно!", MoodExcited
		}
		return "Бомба обезврежена! Раунд спасён! Отличная работа!", MoodHappy
	default:
		return "Бомба взорвалась! Мощный взрыв завершил раунд.", MoodNeutral
	}
}

// donationPrompt builds the forced thank-you prompt for a donation.
func donationPrompt(d state.Donation) string {
	username := d.Username
	if username == "" {
		username = "Аноним"
	}
	prompt := fmt.Sprintf("Зритель %s только что задонатил %.0f %s!", username, d.Amount, d.Currency)
	if d.Message != "" {
		prompt += fmt.Sprintf("\nСообщение: %q", d.Message)
	}
	prompt += "\nПоблагодари его искренне и тепло. Если в сообщении есть вопрос или тема — отреагируй на неё."
	return prompt
}

// subscriptionPrompt builds the forced prompt for a new or renewed sub.
func subscriptionPrompt(s state.Subscription) string {
	username := s.Username
	if username == "" {
		username = "Аноним"
	}
	switch {
	case s.Gift && s.Gifter != "":
		return fmt.Sprintf("%s подарил подписку %s! Каждый щедрый зритель делает стрим лучше! Поблагодари обоих!", s.Gifter, username)
	case s.Months > 1:
		return fmt.Sprintf("%s продлил подписку уже на %d месяц! Это настоящая преданность! Поблагодари за лояльность.", username, s.Months)
	default:
		return fmt.Sprintf("Новый подписчик %s! Добро пожаловать в наше сообщество! Поприветствуй его тепло.", username)
	}
}

// raidPrompt builds the forced prompt for an incoming raid.
func raidPrompt(r state.Raid) string {
	return fmt.Sprintf("ВНИМАНИЕ! РЕЙД! %s прибывает на стрим с %d зрителями! Эпично поприветствуй новых зрителей и поблагодари за рейд!",
		r.Username, r.Viewers)
}

// chatPrompt builds the prompt for replying to a chat message.
func chatPrompt(c state.Chat, mentioned bool) string {
	prompt := fmt.Sprintf("Зритель %s написал в чат: %q", c.Username, c.Message)
	if mentioned {
		prompt += "\nОн обратился к тебе напрямую! Ответь вежливо и по делу."
	} else {
		prompt += "\nМожешь ответить кратко, если есть что сказать интересного."
	}
	return prompt
}

// weaponName strips the engine prefix from weapon identifiers.
func weaponName(w string) string {
	const prefix = "weapon_"
	if len(w) > len(prefix) && w[:len(prefix)] == prefix {
		return w[len(prefix):]
	}
	if w == "" {
		return "оружие"
	}
	return w
}
