package models

// Language constants
const (
	LangUzbek   = "uz"
	LangEnglish = "en"
)

// Translation is a map of message keys to translated text
type Translation map[string]string

// Translations stores all language translations
var Translations = map[string]Translation{
	LangUzbek: {
		"group_notice": "❗️ <a href='tg://user?id=%d'>%s</a> qoida buzdi!\n" +
			"📊 24 soat ichida: %d-marta\n" +
			"📈 Jami: %d-marta\n" +
			"⏰ Blok vaqti: %s\n" +
			"🕐 Qachongacha: %s",
		"private_warning": "❗️ Siz %d-marta qoida buzdingiz.\n⏳ Siz %s ga bloklandingiz.",
		"permanent":       "doimiy",
		"unit_seconds":    "%d soniya",
		"unit_minutes":    "%d daqiqa",
		"unit_hours":      "%d soat",

		"captcha_prompt": "👋 Salom <a href='tg://user?id=%d'>%s</a>!\n\n" +
			"🔐 Guruhga xush kelibsiz! Spam va botlardan himoya qilish uchun " +
			"quyidagi tugmani bosing va %s ichida tasdiqlang.\n\n" +
			"⏰ Vaqt: %s",
		"captcha_button":    "✅ Men odamman",
		"captcha_verified":  "✅ <a href='tg://user?id=%d'>Foydalanuvchi</a> CAPTCHA tekshiruvidan muvaffaqiyatli o'tdi!",
		"captcha_timeout":   "⏰ <a href='tg://user?id=%d'>Foydalanuvchi</a> CAPTCHA tekshiruvidan o'ta olmadi va guruhdan chiqarildi.",
		"captcha_not_yours": "Bu tugma sizga tegishli emas!",
		"captcha_ok":        "✅ CAPTCHA muvaffaqiyatli tasdiqlandi!",
		"captcha_missing":   "❌ CAPTCHA topilmadi!",

		"start_text":          "Bu bot faqat guruhlarda ishlaydi. Meni guruhga qo‘shing.",
		"add_to_group_button": "➕ Guruhga qo‘shish",

		"groups_only":      "Bu command faqat guruhlarda ishlaydi!",
		"not_admin":        "❌ Siz bu xizmatdan foydalana olmaysiz!",
		"no_admins":        "Guruhda adminlar topilmadi!",
		"admins_ping":      "🔔 <b>Ogohlantirish!</b>\n\nGuruh: <b>%s</b>\nFoydalanuvchi: <a href='tg://user?id=%d'>%s</a>\nVaqt: %s\n\nSizni guruhda belgilashdi!",
		"admins_pinged":    "✅ Barcha adminlarga ogohlantirish yuborildi!",
		"no_parameters":    "❌ Faqat '/%s' ni ishlating, parametrsiz. Foydalanuvchi xabariga reply qiling.",
		"reply_required":   "❌ Foydalanuvchi xabariga reply qiling!",
		"blocked_empty":    "📋 Guruhda blocklangan foydalanuvchilar yo'q!",
		"blocked_title":    "📋 <b>Blocklangan foydalanuvchilar ro'yxati</b>\nGuruh: <b>%s</b>\n\n",
		"blocked_entry":    "👤 <a href='tg://user?id=%d'>%s</a>\n   🚫 Sabab: %s\n   📅 Vaqt: %s\n\n",
		"reason_missing":   "Ko'rsatilmagan",
		"sent_privately":   "✅ Ro'yxat shaxsiy xabarga yuborildi!",
		"private_failed":   "❌ Shaxsiy xabar yuborishda xatolik!",
		"ban_usage":        "❌ Ban qilish uchun foydalanuvchi xabariga reply qiling yoki user ID yuboring: /ban <user_id>.",
		"ban_self":         "❌ O'zingizni ban qila olmaysiz!",
		"ban_bot":          "❌ Botni ban qila olmaysiz!",
		"ban_absent":       "❌ Bu foydalanuvchi allaqachon guruhda yo'q!",
		"ban_admin":        "❌ Admin yoki egani ban qilib bo'lmaydi!",
		"ban_unknown":      "❌ Foydalanuvchi topilmadi!",
		"ban_done":         "✅ <a href='tg://user?id=%d'>%s</a> guruhdan chiqarildi!",
		"ban_failed":       "❌ Ban qilishda xatolik: %s",
		"ban_reason_admin": "Admin tomonidan ban qilindi",
		"ban_reason_auto":  "Kunlik qoida buzish chegarasi",
		"warn_done":        "⚠️ <a href='tg://user?id=%d'>%s</a> ogohlantirildi!\n\nBunday habar yozish mumkin emas!",
		"warn_failed":      "❌ Ogohlantirishda xatolik!",
		"captcha_self":     "❌ O'zingizga CAPTCHA yubora olmaysiz!",
		"captcha_bot":      "❌ Botga CAPTCHA yuborib bo'lmaydi!",
		"captcha_sent":     "✅ CAPTCHA yuborildi!",
		"captcha_failed":   "❌ CAPTCHA yuborishda xatolik",
		"notify_title":     "🔔 <b>Adminlarga ogohlantirish</b>\n\nGuruh: <b>%s</b>\nFoydalanuvchi: <a href='tg://user?id=%d'>%s</a>\nXabar ID: <code>%d</code>\n",
		"notify_no_link":   "\nℹ️ Guruhda xabar topildi, lekin to'g'ridan-to'g'ri link mavjud emas.",
		"notify_open":      "🔗 Xabarni ochish",
		"notify_done":      "✅ Adminlarga xabar yuborildi!",
		"notify_none":      "❌ Hech bir adminga xabar yuborilmadi.",
		"logs_caption":     "📄 Bot logs",
		"logs_sent":        "✅ Log fayli shaxsiy xabarga yuborildi!",
		"logs_failed":      "❌ Log yuborishda xatolik: %s",
		"diag_title":       "🧪 Bot diag\n\n",
		"diag_failed":      "❌ Diag xatolik: %s",
		"stats_text":       "📊 <b>Statistika</b>\n\nQoida buzganlar: %d\nJami qoida buzishlar: %d\nBlocklanganlar: %d",

		"cmd_desc_start":              "Bot haqida",
		"cmd_desc_ban":                "Foydalanuvchini guruhdan chiqarish",
		"cmd_desc_warn":               "Foydalanuvchini ogohlantirish",
		"cmd_desc_captcha":            "Foydalanuvchiga CAPTCHA yuborish",
		"cmd_desc_blocked_users":      "Blocklanganlar ro'yxati",
		"cmd_desc_admins":             "Adminlarni chaqirish",
		"cmd_desc_admin_notification": "Xabarni adminlarga yuborish",
		"cmd_desc_stats":              "Guruh statistikasi",
		"cmd_desc_diag":               "Bot huquqlarini tekshirish",
		"cmd_desc_logs":               "Log faylini olish",
	},
	LangEnglish: {
		"group_notice": "❗️ <a href='tg://user?id=%d'>%s</a> broke the rules!\n" +
			"📊 Within 24 hours: %d time(s)\n" +
			"📈 Total: %d time(s)\n" +
			"⏰ Block duration: %s\n" +
			"🕐 Until: %s",
		"private_warning": "❗️ You broke the rules %d time(s).\n⏳ You are blocked for %s.",
		"permanent":       "permanent",
		"unit_seconds":    "%d seconds",
		"unit_minutes":    "%d minutes",
		"unit_hours":      "%d hours",

		"captcha_prompt": "👋 Hello <a href='tg://user?id=%d'>%s</a>!\n\n" +
			"🔐 Welcome to the group! To protect it from spam and bots, " +
			"press the button below and confirm within %s.\n\n" +
			"⏰ Time: %s",
		"captcha_button":    "✅ I am human",
		"captcha_verified":  "✅ <a href='tg://user?id=%d'>User</a> passed the CAPTCHA check!",
		"captcha_timeout":   "⏰ <a href='tg://user?id=%d'>User</a> failed the CAPTCHA check and was removed from the group.",
		"captcha_not_yours": "This button is not for you!",
		"captcha_ok":        "✅ CAPTCHA confirmed!",
		"captcha_missing":   "❌ CAPTCHA not found!",

		"start_text":          "This bot only works in groups. Add me to a group.",
		"add_to_group_button": "➕ Add to group",

		"groups_only":      "This command only works in groups!",
		"not_admin":        "❌ You are not allowed to use this command!",
		"no_admins":        "No admins found in the group!",
		"admins_ping":      "🔔 <b>Attention!</b>\n\nGroup: <b>%s</b>\nUser: <a href='tg://user?id=%d'>%s</a>\nTime: %s\n\nYou were mentioned in the group!",
		"admins_pinged":    "✅ All admins have been notified!",
		"no_parameters":    "❌ Use '/%s' without parameters, as a reply to the user's message.",
		"reply_required":   "❌ Reply to the user's message!",
		"blocked_empty":    "📋 No blocked users in this group!",
		"blocked_title":    "📋 <b>Blocked users</b>\nGroup: <b>%s</b>\n\n",
		"blocked_entry":    "👤 <a href='tg://user?id=%d'>%s</a>\n   🚫 Reason: %s\n   📅 Time: %s\n\n",
		"reason_missing":   "Not specified",
		"sent_privately":   "✅ The list was sent to you privately!",
		"private_failed":   "❌ Could not send a private message!",
		"ban_usage":        "❌ Reply to the user's message or pass a user ID: /ban <user_id>.",
		"ban_self":         "❌ You cannot ban yourself!",
		"ban_bot":          "❌ You cannot ban the bot!",
		"ban_absent":       "❌ This user is no longer in the group!",
		"ban_admin":        "❌ Admins and the owner cannot be banned!",
		"ban_unknown":      "❌ User not found!",
		"ban_done":         "✅ <a href='tg://user?id=%d'>%s</a> was removed from the group!",
		"ban_failed":       "❌ Ban failed: %s",
		"ban_reason_admin": "Banned by an admin",
		"ban_reason_auto":  "Daily violation threshold reached",
		"warn_done":        "⚠️ <a href='tg://user?id=%d'>%s</a> has been warned!\n\nSuch messages are not allowed!",
		"warn_failed":      "❌ Warning failed!",
		"captcha_self":     "❌ You cannot send a CAPTCHA to yourself!",
		"captcha_bot":      "❌ The bot cannot be challenged!",
		"captcha_sent":     "✅ CAPTCHA sent!",
		"captcha_failed":   "❌ Could not send the CAPTCHA",
		"notify_title":     "🔔 <b>Admin alert</b>\n\nGroup: <b>%s</b>\nUser: <a href='tg://user?id=%d'>%s</a>\nMessage ID: <code>%d</code>\n",
		"notify_no_link":   "\nℹ️ The message is in the group but no direct link is available.",
		"notify_open":      "🔗 Open message",
		"notify_done":      "✅ Admins have been notified!",
		"notify_none":      "❌ No admin could be notified.",
		"logs_caption":     "📄 Bot logs",
		"logs_sent":        "✅ The log file was sent to you privately!",
		"logs_failed":      "❌ Could not send logs: %s",
		"diag_title":       "🧪 Bot diag\n\n",
		"diag_failed":      "❌ Diag failed: %s",
		"stats_text":       "📊 <b>Statistics</b>\n\nViolators: %d\nTotal violations: %d\nBlocked: %d",

		"cmd_desc_start":              "About the bot",
		"cmd_desc_ban":                "Remove a user from the group",
		"cmd_desc_warn":               "Warn a user",
		"cmd_desc_captcha":            "Send a CAPTCHA to a user",
		"cmd_desc_blocked_users":      "List blocked users",
		"cmd_desc_admins":             "Call the admins",
		"cmd_desc_admin_notification": "Report a message to the admins",
		"cmd_desc_stats":              "Group statistics",
		"cmd_desc_diag":               "Check the bot's permissions",
		"cmd_desc_logs":               "Get the log file",
	},
}

// GetTranslation returns the correct translation for a given language code and key
func GetTranslation(lang, key string) string {
	// Default to Uzbek if language not supported
	if _, ok := Translations[lang]; !ok {
		lang = LangUzbek
	}

	if translation, ok := Translations[lang][key]; ok {
		return translation
	}

	if translation, ok := Translations[LangUzbek][key]; ok {
		return translation
	}

	// Return the key itself if translation not found
	return key
}

// GetLanguageName returns the display name of a language code
func GetLanguageName(langCode string) string {
	switch langCode {
	case LangUzbek:
		return "O'zbekcha"
	case LangEnglish:
		return "English"
	default:
		return langCode
	}
}
